package retrieval

import (
	"context"
	"log/slog"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

const remindersTopK = 5

// retrieveReminders is the narrowest path: only conversation turns written
// while reminders mode was active, no boosts, no extra namespaces. Reminder
// context is short-lived and literal, so a small flat window works better
// than a wide weighted one.
func (s *MemoryService) retrieveReminders(ctx context.Context, logger *slog.Logger, q *Query, queryVector []float32) modePlan {
	results := s.runQueries(ctx, logger, queryVector, []namespaceQuery{
		{
			kind:      "reminders",
			namespace: conversationsNamespace,
			topK:      remindersTopK,
			filter: vector.Filter{
				"user_id":     vector.Eq(q.UserID),
				"active_mode": vector.Eq("reminders"),
			},
			source: SourceConversation,
		},
	})

	return modePlan{candidates: results[0], topN: s.cfg.RerankTopN}
}
