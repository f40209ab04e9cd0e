package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

func newTestDB(t *testing.T) store.Driver {
	t.Helper()
	driver, err := NewDB(&profile.Profile{Mode: "demo", Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	require.NoError(t, driver.ApplyLatestSchema(context.Background()))
	return driver
}

func TestMigrationState(t *testing.T) {
	ctx := context.Background()
	driver, err := NewDB(&profile.Profile{Mode: "demo", Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	initialized, err := driver.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, initialized)

	require.NoError(t, driver.ApplyLatestSchema(ctx))

	initialized, err = driver.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)

	version, err := driver.GetCurrentMigrationVersion(ctx)
	require.NoError(t, err)
	assert.Empty(t, version)

	require.NoError(t, driver.UpsertMigrationHistory(ctx, "0.1.0"))
	version, err = driver.GetCurrentMigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", version)
}

func TestDocumentCRUD(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	created, err := driver.CreateDocument(ctx, &store.Document{
		UserID:      7,
		Filename:    "vaccines.pdf",
		FileType:    "pdf",
		S3URL:       "s3://bucket/vaccines.pdf",
		IsVetReport: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	userID := int64(7)
	docs, err := driver.ListDocuments(ctx, &store.FindDocument{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "vaccines.pdf", docs[0].Filename)
	assert.True(t, docs[0].IsVetReport)

	require.NoError(t, driver.DeleteDocuments(ctx, &store.DeleteDocument{ID: &created.ID}))
	docs, err = driver.ListDocuments(ctx, &store.FindDocument{UserID: &userID})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFindConversationDocuments(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	attached, err := driver.CreateDocument(ctx, &store.Document{UserID: 7, Filename: "a.pdf"})
	require.NoError(t, err)
	_, err = driver.CreateDocument(ctx, &store.Document{UserID: 7, Filename: "b.pdf"})
	require.NoError(t, err)

	require.NoError(t, driver.AttachDocumentToMessage(ctx, &store.AttachDocument{
		DocumentID:     attached.ID,
		MessageID:      100,
		ConversationID: 3,
	}))
	// Attaching twice is a no-op.
	require.NoError(t, driver.AttachDocumentToMessage(ctx, &store.AttachDocument{
		DocumentID:     attached.ID,
		MessageID:      100,
		ConversationID: 3,
	}))

	docs, err := driver.FindConversationDocuments(ctx, 3, 7)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, attached.ID, docs[0].ID)

	docs, err = driver.FindConversationDocuments(ctx, 3, 99)
	require.NoError(t, err)
	assert.Empty(t, docs, "other users must not see the documents")
}

func TestMemoryVectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	err := driver.UpsertMemoryVectors(ctx, "conversations", []vector.Vector{
		{ID: "msg_1", Values: []float32{1, 0, 0}, Metadata: map[string]any{"user_id": 7, "text": "walk in the park"}},
		{ID: "msg_2", Values: []float32{0, 1, 0}, Metadata: map[string]any{"user_id": 7, "text": "vet visit"}},
		{ID: "msg_3", Values: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"user_id": 99}},
	})
	require.NoError(t, err)

	matches, err := driver.QueryMemoryVectors(ctx, &store.QueryMemoryVectors{
		Namespace: "conversations",
		Values:    []float32{1, 0, 0},
		TopK:      10,
		Filter:    vector.Filter{"user_id": vector.Eq(7)},
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "msg_1", matches[0].ID, "most similar first")
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "walk in the park", matches[0].Metadata["text"])

	// Replacing an existing id keeps a single row.
	err = driver.UpsertMemoryVectors(ctx, "conversations", []vector.Vector{
		{ID: "msg_1", Values: []float32{0, 0, 1}, Metadata: map[string]any{"user_id": 7}},
	})
	require.NoError(t, err)

	matches, err = driver.QueryMemoryVectors(ctx, &store.QueryMemoryVectors{
		Namespace: "conversations",
		Values:    []float32{0, 0, 1},
		TopK:      1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "msg_1", matches[0].ID)
}

func TestDeleteMemoryVectors(t *testing.T) {
	ctx := context.Background()
	driver := newTestDB(t)

	err := driver.UpsertMemoryVectors(ctx, "user_7_docs", []vector.Vector{
		{ID: "doc_1_chunk_0", Values: []float32{1, 0, 0}, Metadata: map[string]any{"document_id": 1}},
		{ID: "doc_2_chunk_0", Values: []float32{0, 1, 0}, Metadata: map[string]any{"document_id": 2}},
	})
	require.NoError(t, err)

	// Filtered delete removes only the matching rows.
	err = driver.DeleteMemoryVectors(ctx, "user_7_docs", vector.Filter{"document_id": vector.Eq(1)})
	require.NoError(t, err)

	matches, err := driver.QueryMemoryVectors(ctx, &store.QueryMemoryVectors{
		Namespace: "user_7_docs",
		Values:    []float32{1, 0, 0},
		TopK:      10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc_2_chunk_0", matches[0].ID)

	// Nil filter drops the namespace.
	require.NoError(t, driver.DeleteMemoryVectors(ctx, "user_7_docs", nil))
	matches, err = driver.QueryMemoryVectors(ctx, &store.QueryMemoryVectors{
		Namespace: "user_7_docs",
		Values:    []float32{1, 0, 0},
		TopK:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}
