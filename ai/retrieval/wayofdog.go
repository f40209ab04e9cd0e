package retrieval

import (
	"context"
	"log/slog"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// Boosts in wayofdog mode. The user's own highlights and reflections are
// the point of the mode, so they tower over everything else; conversations
// are background only.
const (
	wayOfDogNoteBoost = 3.0
	wayOfDogBookBoost = 2.0
	wayOfDogConvCap   = 3
)

// retrieveWayOfDog serves the book-companion mode: the user's reading notes
// first, the book itself second, recent conversations a distant third. The
// notes list doubles as the must-include set so a user's highlights cannot
// be crowded out even when the book text is semantically closer to the
// query.
func (s *MemoryService) retrieveWayOfDog(ctx context.Context, logger *slog.Logger, q *Query, queryVector []float32) modePlan {
	topK := s.topK(q)

	queries := []namespaceQuery{
		{
			kind:      "book_notes",
			namespace: userBookNotesNamespace(q.UserID),
			topK:      topK,
			boost:     wayOfDogNoteBoost,
			source:    SourceUserBookNote,
		},
		{
			kind:      "book",
			namespace: s.bookContentNamespace(),
			topK:      topK,
			boost:     wayOfDogBookBoost,
			source:    SourceBook,
		},
		{
			kind:      "conversations",
			namespace: conversationsNamespace,
			topK:      topK,
			filter:    vector.Filter{"user_id": vector.Eq(q.UserID)},
			source:    SourceConversation,
			cap:       wayOfDogConvCap,
		},
	}

	results := s.runQueries(ctx, logger, queryVector, queries)
	notes := results[0]

	candidates := mergeCandidates(results...)

	return modePlan{
		candidates:  candidates,
		mustInclude: notes,
		topN:        s.cfg.RerankTopN,
	}
}
