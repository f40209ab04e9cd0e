package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/format"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// textPreviewLimit caps the stored text preview so metadata stays small;
// the full content lives in the relational store.
const textPreviewLimit = 1000

// chunkEmbedConcurrency bounds parallel chunk embedding so a large document
// upload cannot exhaust the embedding provider's rate limit on its own.
const chunkEmbedConcurrency = 4

// ConversationMessage is one chat turn to persist into the conversations
// namespace.
type ConversationMessage struct {
	Extra          map[string]any
	Content        string
	Role           string
	ActiveMode     string
	UserID         int64
	ConversationID int64
	MessageID      int64
}

// DocumentUpload is a chunked document to persist into the user's document
// namespace.
type DocumentUpload struct {
	Chunks       []string
	Filename     string
	FileType     string
	S3URL        string
	UserID       int64
	DocumentID   int64
	DogProfileID int64
	IsVetReport  bool
}

// StoreConversationMemory embeds and indexes one chat turn. It reports
// success as a bool rather than an error: memory writes are advisory, and
// the chat flow proceeds either way.
func (s *MemoryService) StoreConversationMemory(ctx context.Context, msg *ConversationMessage) bool {
	if msg == nil || msg.Content == "" {
		return false
	}
	logger := s.logger.With("user_id", msg.UserID, "message_id", msg.MessageID)

	values, err := s.embedder.Embed(ctx, msg.Content)
	if err != nil {
		logger.WarnContext(ctx, "Failed to embed conversation message", "error", err)
		s.metrics.ObserveMemoryStored("conversation", false)
		return false
	}

	metadata := map[string]any{}
	for k, v := range msg.Extra {
		metadata[k] = v
	}
	metadata["user_id"] = msg.UserID
	metadata["conversation_id"] = msg.ConversationID
	metadata["message_id"] = msg.MessageID
	metadata["role"] = msg.Role
	metadata["text"] = format.Preview(msg.Content, textPreviewLimit)
	metadata["created_at"] = s.now().UTC().Format(time.RFC3339)
	metadata["source_type"] = SourceConversation
	if msg.ActiveMode != "" {
		metadata["active_mode"] = msg.ActiveMode
	}

	err = s.index.Upsert(ctx, conversationsNamespace, []vector.Vector{
		{
			ID:       fmt.Sprintf("msg_%d", msg.MessageID),
			Values:   values,
			Metadata: metadata,
		},
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to upsert conversation memory", "error", err)
		s.metrics.ObserveMemoryStored("conversation", false)
		return false
	}

	s.metrics.ObserveMemoryStored("conversation", true)
	return true
}

// StoreDocumentMemory embeds and indexes a document's chunks, best-effort:
// every chunk is attempted independently, and the upload counts as stored
// when at least one chunk landed. Returns the number of chunks stored.
func (s *MemoryService) StoreDocumentMemory(ctx context.Context, doc *DocumentUpload) (int, bool) {
	if doc == nil || len(doc.Chunks) == 0 {
		return 0, false
	}
	logger := s.logger.With("user_id", doc.UserID, "document_id", doc.DocumentID)

	docContext := fmt.Sprintf("Document: %s, Type: %s", doc.Filename, doc.FileType)
	createdAt := s.now().UTC().Format(time.RFC3339)
	namespace := userDocsNamespace(doc.UserID)

	sem := semaphore.NewWeighted(chunkEmbedConcurrency)
	var (
		mu     sync.Mutex
		stored int
	)
	var wg sync.WaitGroup
	for i, chunk := range doc.Chunks {
		if chunk == "" {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.WarnContext(ctx, "Aborting remaining chunks", "error", err)
			break
		}
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			defer sem.Release(1)

			if s.storeDocumentChunk(ctx, logger, doc, namespace, docContext, createdAt, i, chunk) {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}(i, chunk)
	}
	wg.Wait()

	ok := stored > 0
	s.metrics.ObserveMemoryStored("document", ok)
	if stored < len(doc.Chunks) {
		logger.WarnContext(ctx, "Stored document memory partially",
			"stored", stored,
			"total", len(doc.Chunks),
		)
	}
	return stored, ok
}

func (s *MemoryService) storeDocumentChunk(ctx context.Context, logger *slog.Logger, doc *DocumentUpload, namespace, docContext, createdAt string, index int, chunk string) bool {
	values, err := s.embedder.EmbedContextual(ctx, chunk, docContext)
	if err != nil {
		logger.WarnContext(ctx, "Failed to embed document chunk", "chunk_index", index, "error", err)
		return false
	}

	metadata := map[string]any{
		"user_id":       doc.UserID,
		"document_id":   doc.DocumentID,
		"chunk_index":   index,
		"filename":      doc.Filename,
		"file_type":     doc.FileType,
		"s3_url":        doc.S3URL,
		"is_vet_report": doc.IsVetReport,
		"text":          format.Preview(chunk, textPreviewLimit),
		"created_at":    createdAt,
		"source_type":   SourceUserDocument,
	}
	if doc.DogProfileID != 0 {
		metadata["dog_profile_id"] = doc.DogProfileID
	}

	err = s.index.Upsert(ctx, namespace, []vector.Vector{
		{
			ID:       fmt.Sprintf("doc_%d_chunk_%d", doc.DocumentID, index),
			Values:   values,
			Metadata: metadata,
		},
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to upsert document chunk", "chunk_index", index, "error", err)
		return false
	}
	return true
}

// DeleteConversationMemories removes a conversation's turns from the
// conversations namespace.
func (s *MemoryService) DeleteConversationMemories(ctx context.Context, userID, conversationID int64) bool {
	err := s.index.DeleteByFilter(ctx, conversationsNamespace, vector.Filter{
		"user_id":         vector.Eq(userID),
		"conversation_id": vector.Eq(conversationID),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to delete conversation memories",
			"user_id", userID,
			"conversation_id", conversationID,
			"error", err,
		)
		return false
	}
	return true
}

// DeleteUserMemories removes every memory the user owns across all
// namespaces, for account deletion. Per-namespace failures are logged and
// the remaining namespaces are still attempted.
func (s *MemoryService) DeleteUserMemories(ctx context.Context, userID int64) bool {
	ok := true

	if err := s.index.DeleteByFilter(ctx, conversationsNamespace, vector.Filter{
		"user_id": vector.Eq(userID),
	}); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete conversation memories", "user_id", userID, "error", err)
		ok = false
	}

	// The per-user namespaces are dropped wholesale.
	for _, namespace := range []string{userDocsNamespace(userID), userBookNotesNamespace(userID)} {
		if err := s.index.DeleteByFilter(ctx, namespace, nil); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete user namespace", "namespace", namespace, "error", err)
			ok = false
		}
	}
	return ok
}
