package store

import (
	"context"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
)

// Store provides database access to all raw objects. It doubles as the
// SQL-backed vector index: the retrieval pipeline talks to it through the
// vector.Index interface and never sees the driver underneath.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) DeleteDocuments(ctx context.Context, delete *DeleteDocument) error {
	return s.driver.DeleteDocuments(ctx, delete)
}

func (s *Store) AttachDocumentToMessage(ctx context.Context, attach *AttachDocument) error {
	return s.driver.AttachDocumentToMessage(ctx, attach)
}

func (s *Store) FindConversationDocuments(ctx context.Context, conversationID, userID int64) ([]*Document, error) {
	return s.driver.FindConversationDocuments(ctx, conversationID, userID)
}

// Query implements vector.Index.
func (s *Store) Query(ctx context.Context, namespace string, values []float32, topK int, filter vector.Filter) ([]vector.Match, error) {
	return s.driver.QueryMemoryVectors(ctx, &QueryMemoryVectors{
		Namespace: namespace,
		Values:    values,
		TopK:      topK,
		Filter:    filter,
	})
}

// Upsert implements vector.Index.
func (s *Store) Upsert(ctx context.Context, namespace string, vectors []vector.Vector) error {
	return s.driver.UpsertMemoryVectors(ctx, namespace, vectors)
}

// DeleteByFilter implements vector.Index.
func (s *Store) DeleteByFilter(ctx context.Context, namespace string, filter vector.Filter) error {
	return s.driver.DeleteMemoryVectors(ctx, namespace, filter)
}
