package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryIndex is an in-process Index with per-namespace storage and
// brute-force cosine search. It backs the demo mode and tests; production
// deployments use the database-backed drivers.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Vector
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		namespaces: make(map[string]map[string]Vector),
	}
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, values []float32, topK int, filter Filter) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, topK)
	for _, v := range m.namespaces[namespace] {
		if filter != nil && !filter.Matches(v.Metadata) {
			continue
		}
		score, err := cosineSimilarity(values, v.Values)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{
			ID:       v.ID,
			Score:    score,
			Metadata: cloneMetadata(v.Metadata),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]Vector)
		m.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		if v.ID == "" {
			return errors.New("vector id cannot be empty")
		}
		ns[v.ID] = Vector{
			ID:       v.ID,
			Values:   append([]float32(nil), v.Values...),
			Metadata: cloneMetadata(v.Metadata),
		}
	}
	return nil
}

func (m *MemoryIndex) DeleteByFilter(ctx context.Context, namespace string, filter Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if filter == nil {
		delete(m.namespaces, namespace)
		return nil
	}
	for id, v := range m.namespaces[namespace] {
		if filter.Matches(v.Metadata) {
			delete(m.namespaces[namespace], id)
		}
	}
	return nil
}

// Len returns the number of vectors stored in a namespace.
func (m *MemoryIndex) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	clone := make(map[string]any, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
