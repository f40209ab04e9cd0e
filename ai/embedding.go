package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedContextual fuses document context with a chunk before embedding.
	// Short chunks are ambiguous on their own; prepending "Document: X,
	// Type: Y" style context disambiguates them at retrieval time.
	EmbedContextual(ctx context.Context, chunk, docContext string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	client     *openai.Client
	cache      *ristretto.Cache
	limiter    *rate.Limiter
	model      string
	dimensions int
}

// NewEmbeddingService creates a new EmbeddingService backed by any
// OpenAI-compatible provider (openai, siliconflow, ollama, etc).
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	s := &embeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}

	if cfg.RPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheSize * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, NewEmbeddingError(err)
	}
	s.cache = cache

	return s, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.cacheKey(text)
	if cached, ok := s.cache.Get(key); ok {
		if vector, ok := cached.([]float32); ok {
			return vector, nil
		}
	}

	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, NewEmbeddingError(errors.New("empty embedding result"))
	}

	s.cache.Set(key, vectors[0], 1)
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, NewEmbeddingError(errors.New("no texts provided for embedding"))
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, NewEmbeddingError(err)
		}
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, NewEmbeddingError(fmt.Errorf("create embeddings failed: %w", err))
	}

	if len(resp.Data) == 0 {
		return nil, NewEmbeddingError(errors.New("empty embedding response"))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}

	return vectors, nil
}

func (s *embeddingService) EmbedContextual(ctx context.Context, chunk, docContext string) ([]float32, error) {
	return s.Embed(ctx, FuseChunkContext(chunk, docContext))
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// FuseChunkContext joins document context and chunk into the text that gets
// embedded for contextual retrieval. Kept as a separate function so the write
// path and tests agree on the exact fusion format.
func FuseChunkContext(chunk, docContext string) string {
	if docContext == "" {
		return chunk
	}
	return docContext + "\n\n" + chunk
}
