package store

import (
	"errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// QueryMemoryVectors specifies a similarity query against one namespace of
// the memory vector table.
type QueryMemoryVectors struct {
	Filter    vector.Filter
	Namespace string
	Values    []float32
	TopK      int
}

func (q *QueryMemoryVectors) Validate() error {
	if q.Namespace == "" {
		return errors.New("namespace is required")
	}
	if len(q.Values) == 0 {
		return errors.New("query vector is required")
	}
	if q.TopK <= 0 {
		q.TopK = 10
	}
	return nil
}
