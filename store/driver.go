package store

import (
	"context"
	"database/sql"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	ApplyLatestSchema(ctx context.Context) error
	GetCurrentMigrationVersion(ctx context.Context) (string, error)
	UpsertMigrationHistory(ctx context.Context, version string) error

	// Document methods
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocuments(ctx context.Context, delete *DeleteDocument) error
	AttachDocumentToMessage(ctx context.Context, attach *AttachDocument) error
	FindConversationDocuments(ctx context.Context, conversationID, userID int64) ([]*Document, error)

	// Memory vector methods
	UpsertMemoryVectors(ctx context.Context, namespace string, vectors []vector.Vector) error
	QueryMemoryVectors(ctx context.Context, find *QueryMemoryVectors) ([]vector.Match, error)
	DeleteMemoryVectors(ctx context.Context, namespace string, filter vector.Filter) error
}
