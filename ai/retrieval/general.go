package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/core/rerank"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// Boosts in general mode. Conversations stay un-boosted; book content is
// deliberately damped so user history outranks book passages for everyday
// questions.
const (
	generalBookBoost  = 0.8
	referenceDocScore = 0.95
	referenceDocBoost = 1.2
	generalBookTopK   = 3
	docQueryConvTopK  = 2
)

// retrieveGeneral is the default path: conversations plus user documents,
// with intent classification steering the namespace mix.
//
// A reference query with a known conversation bypasses semantic document
// search entirely and pulls the conversation's documents from the relational
// store, so "that file I sent you" resolves to the actual attachments rather
// than whatever happens to be semantically close.
func (s *MemoryService) retrieveGeneral(ctx context.Context, logger *slog.Logger, q *Query, queryVector []float32) modePlan {
	isDocumentQuery := s.classifier.IsDocumentQuery(q.Text)
	isReferenceQuery := s.classifier.IsReferenceQuery(q.Text)
	isImageQuery := s.classifier.IsImageQuery(q.Text)
	isDogRelated := s.classifier.IsDogRelated(q.Text)

	topK := s.topK(q)
	conversationTopK := topK / 2
	if isDocumentQuery {
		// Leave room for document hits when the user is clearly asking
		// about a file.
		conversationTopK = docQueryConvTopK
	}
	if conversationTopK < 1 {
		conversationTopK = 1
	}

	referencePath := isReferenceQuery && q.ConversationID != 0 && s.documents != nil

	queries := []namespaceQuery{
		{
			kind:      "conversations",
			namespace: conversationsNamespace,
			topK:      conversationTopK,
			filter:    vector.Filter{"user_id": vector.Eq(q.UserID)},
			source:    SourceConversation,
		},
	}

	if !q.SkipDocumentSearch && !referencePath {
		// Vet reports are excluded here; they only surface through health
		// mode where they carry a dedicated boost.
		filter := vector.Filter{
			"user_id":       vector.Eq(q.UserID),
			"is_vet_report": vector.Ne(true),
		}
		if isImageQuery {
			filter["file_type"] = vector.In("jpg", "jpeg", "png", "gif", "webp")
		}
		queries = append(queries, namespaceQuery{
			kind:      "user_docs",
			namespace: userDocsNamespace(q.UserID),
			topK:      topK,
			filter:    filter,
			source:    SourceUserDocument,
		})
	}

	if isDogRelated {
		queries = append(queries, namespaceQuery{
			kind:      "book",
			namespace: s.bookContentNamespace(),
			topK:      generalBookTopK,
			boost:     generalBookBoost,
			source:    SourceBook,
		})
	}

	results := s.runQueries(ctx, logger, queryVector, queries)

	var referenced []rerank.Candidate
	if referencePath {
		referenced = s.conversationDocumentCandidates(ctx, logger, q)
	}

	candidates := mergeCandidates(append([][]rerank.Candidate{referenced}, results...)...)

	topN := s.cfg.RerankTopN
	if isDocumentQuery {
		topN = s.cfg.DocumentQueryTopN
	}

	return modePlan{candidates: candidates, topN: topN}
}

// conversationDocumentCandidates builds candidates from the relational
// lookup of a conversation's attachments. They enter re-ranking with a fixed
// near-top similarity plus a boost, so a genuine attachment beats semantic
// guesses.
func (s *MemoryService) conversationDocumentCandidates(ctx context.Context, logger *slog.Logger, q *Query) []rerank.Candidate {
	docs, err := s.documents.FindConversationDocuments(ctx, q.ConversationID, q.UserID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load conversation documents, falling back to semantic results",
			"conversation_id", q.ConversationID,
			"error", err,
		)
		return nil
	}

	candidates := make([]rerank.Candidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, rerank.Candidate{
			ID:            fmt.Sprintf("doc_%d", doc.ID),
			Text:          doc.Filename,
			CreatedAt:     doc.CreatedAt.Format(time.RFC3339),
			BaseScore:     referenceDocScore,
			PriorityBoost: referenceDocBoost,
			SourceType:    SourceUserDocument,
			Metadata: map[string]any{
				"user_id":       doc.UserID,
				"document_id":   doc.ID,
				"filename":      doc.Filename,
				"file_type":     doc.FileType,
				"s3_url":        doc.S3URL,
				"is_vet_report": doc.IsVetReport,
				"text":          doc.Filename,
				"created_at":    doc.CreatedAt.Format(time.RFC3339),
				"source":        "conversation_documents",
			},
		})
	}
	return candidates
}
