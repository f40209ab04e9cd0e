// Package vector defines the namespaced vector index consumed by the
// retrieval pipeline. Queries, upserts and deletes are always scoped to one
// namespace; a query against namespace A never returns vectors from
// namespace B.
package vector

import "context"

// Vector is a stored embedding with its metadata.
type Vector struct {
	Metadata map[string]any
	ID       string
	Values   []float32
}

// Match is a single similarity search hit.
type Match struct {
	Metadata map[string]any
	ID       string
	// Score is cosine similarity in [-1, 1], typically [0, 1].
	Score float64
}

// Index is the vector index interface.
type Index interface {
	// Query performs a similarity search within one namespace.
	// filter may be nil for an unfiltered search.
	Query(ctx context.Context, namespace string, values []float32, topK int, filter Filter) ([]Match, error)

	// Upsert inserts or replaces vectors within one namespace.
	Upsert(ctx context.Context, namespace string, vectors []Vector) error

	// DeleteByFilter removes all vectors in a namespace whose metadata
	// matches the filter. A nil filter removes the whole namespace.
	DeleteByFilter(ctx context.Context, namespace string, filter Filter) error
}
