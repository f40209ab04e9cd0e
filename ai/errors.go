package ai

import (
	"errors"
	"fmt"
)

// EmbeddingError indicates the embedding provider was unavailable or timed out.
// Retrieval treats it as fail-open: the caller proceeds with no context.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// NewEmbeddingError wraps err as an EmbeddingError. Returns nil for nil err.
func NewEmbeddingError(err error) error {
	if err == nil {
		return nil
	}
	return &EmbeddingError{Err: err}
}

// VectorIndexError indicates a per-namespace query/upsert/delete failure.
// Namespace failures are independent: one failing namespace must not abort
// the others.
type VectorIndexError struct {
	Namespace string
	Err       error
}

func (e *VectorIndexError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("vector index: %v", e.Err)
	}
	return fmt.Sprintf("vector index %q: %v", e.Namespace, e.Err)
}

func (e *VectorIndexError) Unwrap() error {
	return e.Err
}

// NewVectorIndexError wraps err as a VectorIndexError. Returns nil for nil err.
func NewVectorIndexError(namespace string, err error) error {
	if err == nil {
		return nil
	}
	return &VectorIndexError{Namespace: namespace, Err: err}
}

// RetrievalError wraps unexpected failures in the orchestration layer.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// IsEmbeddingError reports whether err is (or wraps) an EmbeddingError.
func IsEmbeddingError(err error) bool {
	var target *EmbeddingError
	return errors.As(err, &target)
}

// IsVectorIndexError reports whether err is (or wraps) a VectorIndexError.
func IsVectorIndexError(err error) bool {
	var target *VectorIndexError
	return errors.As(err, &target)
}
