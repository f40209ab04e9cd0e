package retrieval

import (
	"context"
	"log/slog"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
)

// Boosts in health mode. Vet reports dominate; a vet report that is also
// scoped to the dog profile in question scores highest of all.
const (
	vetReportBoost        = 2.0
	profileVetReportBoost = 2.5
	profileDocBoost       = 1.5
	healthBookBoost       = 1.3
	healthTopK            = 5

	// healthFallbackThreshold triggers the broadening queries when a
	// primary query comes back too thin.
	healthFallbackThreshold = 3
)

// healthBookTopics scope the book query to care-relevant chapters.
var healthBookTopics = []any{"health", "nutrition", "grooming"}

// retrieveHealth prioritizes medical context: vet reports first, then
// profile-scoped documents, then the care chapters of the book. Thin primary
// results trigger broadening fallbacks so health questions rarely come back
// empty. The mode reranks over a wider window than general because boosted
// sources would otherwise crowd out everything else.
func (s *MemoryService) retrieveHealth(ctx context.Context, logger *slog.Logger, q *Query, queryVector []float32) modePlan {
	profileFilter := vector.Filter{"user_id": vector.Eq(q.UserID)}
	if q.DogProfileID != 0 {
		profileFilter["dog_profile_id"] = vector.Eq(q.DogProfileID)
	}

	queries := []namespaceQuery{
		{
			kind:      "vet_reports",
			namespace: userDocsNamespace(q.UserID),
			topK:      healthTopK,
			filter: vector.Filter{
				"user_id":       vector.Eq(q.UserID),
				"is_vet_report": vector.Eq(true),
			},
			boost:  vetReportBoost,
			source: SourceUserDocument,
		},
		{
			kind:      "profile_docs",
			namespace: userDocsNamespace(q.UserID),
			topK:      healthTopK,
			filter:    profileFilter,
			// A profile-scoped hit that is itself a vet report outranks
			// even the unscoped vet-report query.
			boostFn: func(m vector.Match) float64 {
				if isVetReport(m.Metadata) {
					return profileVetReportBoost
				}
				return profileDocBoost
			},
			source: SourceUserDocument,
		},
		{
			kind:      "book",
			namespace: s.bookContentNamespace(),
			topK:      healthTopK,
			filter:    vector.Filter{"topics": vector.In(healthBookTopics...)},
			boost:     healthBookBoost,
			source:    SourceBook,
		},
	}

	results := s.runQueries(ctx, logger, queryVector, queries)
	vetReports, profileDocs, book := results[0], results[1], results[2]

	// Broadening fallback: drop the profile scope when it starved the
	// document query.
	if len(profileDocs) < healthFallbackThreshold && q.DogProfileID != 0 {
		broadened := s.runQuery(ctx, logger, queryVector, namespaceQuery{
			kind:      "profile_docs_fallback",
			namespace: userDocsNamespace(q.UserID),
			topK:      healthTopK,
			filter:    vector.Filter{"user_id": vector.Eq(q.UserID)},
			boost:     profileDocBoost,
			source:    SourceUserDocument,
		})
		profileDocs = mergeCandidates(profileDocs, broadened)
	}

	// Same for the book: retry without the topic scope.
	if len(book) < healthFallbackThreshold {
		broadened := s.runQuery(ctx, logger, queryVector, namespaceQuery{
			kind:      "book_fallback",
			namespace: s.bookContentNamespace(),
			topK:      healthTopK,
			boost:     healthBookBoost,
			source:    SourceBook,
		})
		book = mergeCandidates(book, broadened)
	}

	candidates := mergeCandidates(vetReports, profileDocs, book)

	return modePlan{candidates: candidates, topN: s.cfg.HealthModeRerankTopN}
}

func isVetReport(metadata map[string]any) bool {
	switch v := metadata["is_vet_report"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
