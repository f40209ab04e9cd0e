package ai

import (
	"errors"
	"time"

	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Enabled   bool
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	// RPS caps requests per second against the embedding API. Zero disables
	// client-side rate limiting.
	RPS int
	// CacheSize is the maximum number of cached query embeddings.
	CacheSize int64
}

// RetrievalConfig represents memory retrieval configuration.
type RetrievalConfig struct {
	// TopK is the default candidate count requested per namespace query.
	TopK int
	// RerankTopN is the number of memories returned after re-ranking.
	RerankTopN int
	// HealthModeRerankTopN is a wider window for health mode; health answers
	// need more grounding than general chat.
	HealthModeRerankTopN int
	// DocumentQueryTopN is the window used when the query targets documents.
	DocumentQueryTopN int
	// Timeout bounds one whole retrieval pipeline execution. On expiry the
	// pipeline returns whatever partial results have completed.
	Timeout time.Duration
	// Environment suffixes the shared book-content namespace.
	Environment string
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.AIEmbeddingProvider,
		Model:      p.AIEmbeddingModel,
		APIKey:     p.AIEmbeddingAPIKey,
		BaseURL:    p.AIEmbeddingBaseURL,
		Dimensions: p.AIEmbeddingDimensions,
		RPS:        p.AIEmbeddingRPS,
		CacheSize:  4096,
	}

	cfg.Retrieval = RetrievalConfig{
		TopK:                 p.RetrievalTopK,
		RerankTopN:           p.RetrievalRerankTopN,
		HealthModeRerankTopN: p.HealthModeRerankTopN,
		DocumentQueryTopN:    15,
		Timeout:              time.Duration(p.RetrievalTimeoutSeconds) * time.Second,
		Environment:          p.Environment,
	}

	return cfg
}

// Validate validates the AI configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	return nil
}
