// Package retrieval implements the mode-aware memory retrieval pipeline:
// namespace fan-out, source-priority weighting, heuristic re-ranking and the
// memory write path. The pipeline is fail-open end to end: a chat turn
// without retrieved memories is preferable to a failed chat turn.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/core/rerank"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/intent"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/metrics"
	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeGeneral   Mode = "general"
	ModeHealth    Mode = "health"
	ModeWayOfDog  Mode = "wayofdog"
	ModeReminders Mode = "reminders"
)

// ParseMode maps an active-mode string to a retrieval mode. Unknown or empty
// modes fall back to general.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeHealth, ModeWayOfDog, ModeReminders:
		return Mode(s)
	default:
		return ModeGeneral
	}
}

// Source types tagged onto retrieved memories so the prompt builder can
// decide section placement.
const (
	SourceConversation = "conversation"
	SourceUserDocument = "user_document"
	SourceBook         = "book"
	SourceUserBookNote = "user_book_note"
)

// Query is one retrieval request. It is ephemeral: created per request and
// discarded after use.
type Query struct {
	Text               string
	Mode               Mode
	UserID             int64
	DogProfileID       int64 // 0 = unset
	ConversationID     int64 // 0 = unset
	Limit              int   // 0 = configured default
	SkipDocumentSearch bool
}

// ScoredMemory is one retrieved memory with its scoring fields.
type ScoredMemory struct {
	Metadata    map[string]any `json:"metadata"`
	ID          string         `json:"id"`
	SourceType  string         `json:"source_type"`
	Score       float64        `json:"score"`
	RerankScore float64        `json:"rerank_score"`
}

// DocumentStore is the relational fallback used by the reference-query path:
// every document ever attached to a conversation, newest first.
type DocumentStore interface {
	FindConversationDocuments(ctx context.Context, conversationID, userID int64) ([]*store.Document, error)
}

// Options carries the optional collaborators of a MemoryService.
type Options struct {
	// Documents enables the reference-query SQL path. Nil disables it
	// (demo mode without a relational store).
	Documents DocumentStore
	// Classifier defaults to the production keyword tables.
	Classifier *intent.Classifier
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	// Now is the clock used for recency decay; defaults to time.Now.
	Now func() time.Time
}

// MemoryService orchestrates mode-specific retrieval strategies across the
// vector index namespaces.
type MemoryService struct {
	index      vector.Index
	embedder   ai.EmbeddingService
	documents  DocumentStore
	classifier *intent.Classifier
	metrics    *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time
	cfg        ai.RetrievalConfig
}

// NewMemoryService creates a MemoryService.
func NewMemoryService(cfg ai.RetrievalConfig, index vector.Index, embedder ai.EmbeddingService, opts *Options) *MemoryService {
	if opts == nil {
		opts = &Options{}
	}
	s := &MemoryService{
		index:      index,
		embedder:   embedder,
		documents:  opts.Documents,
		classifier: opts.Classifier,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
		cfg:        cfg,
	}
	if s.classifier == nil {
		s.classifier = intent.NewClassifier(intent.DefaultTables())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.TopK <= 0 {
		s.cfg.TopK = 10
	}
	if s.cfg.RerankTopN <= 0 {
		s.cfg.RerankTopN = 10
	}
	if s.cfg.HealthModeRerankTopN < s.cfg.RerankTopN {
		s.cfg.HealthModeRerankTopN = s.cfg.RerankTopN * 2
	}
	if s.cfg.DocumentQueryTopN <= 0 {
		s.cfg.DocumentQueryTopN = 15
	}
	return s
}

// Namespace naming is a wire contract shared with the vectors already
// stored; keep in sync with the write path.
const conversationsNamespace = "conversations"

func userDocsNamespace(userID int64) string {
	return fmt.Sprintf("user_%d_docs", userID)
}

func userBookNotesNamespace(userID int64) string {
	return fmt.Sprintf("user_%d_book_notes", userID)
}

func (s *MemoryService) bookContentNamespace() string {
	env := s.cfg.Environment
	if env == "" {
		env = "dev"
	}
	return "book-content-" + env
}

// Retrieve executes the retrieval pipeline for one query. It never returns
// an error: embedding failures and total namespace failure both degrade to
// an empty result list so the caller falls back to no-context chat.
func (s *MemoryService) Retrieve(ctx context.Context, q *Query) []ScoredMemory {
	start := time.Now()
	if q == nil || strings.TrimSpace(q.Text) == "" {
		return nil
	}

	mode := ParseMode(string(q.Mode))
	logger := s.logger.With(
		"request_id", shortuuid.New(),
		"user_id", q.UserID,
		"mode", mode,
	)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	// The query is embedded exactly once per retrieval call; every
	// namespace query reuses the same vector.
	queryVector, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		logger.WarnContext(ctx, "Failed to embed query, returning no memories",
			"error", err,
		)
		s.metrics.ObserveRetrieval(string(mode), "embed_error", 0, time.Since(start))
		return nil
	}

	var plan modePlan
	switch mode {
	case ModeHealth:
		plan = s.retrieveHealth(ctx, logger, q, queryVector)
	case ModeWayOfDog:
		plan = s.retrieveWayOfDog(ctx, logger, q, queryVector)
	case ModeReminders:
		plan = s.retrieveReminders(ctx, logger, q, queryVector)
	default:
		plan = s.retrieveGeneral(ctx, logger, q, queryVector)
	}

	ranked := rerank.Rerank(q.Text, plan.candidates, plan.topN, s.now())
	ranked = enforceMustInclude(ranked, plan.mustInclude, plan.topN, s.now())

	memories := make([]ScoredMemory, 0, len(ranked))
	for _, r := range ranked {
		memories = append(memories, ScoredMemory{
			ID:          r.ID,
			Score:       r.BaseScore,
			RerankScore: r.RerankScore,
			SourceType:  r.SourceType,
			Metadata:    r.Metadata,
		})
	}

	logger.InfoContext(ctx, "Retrieval completed",
		"candidate_count", len(plan.candidates),
		"result_count", len(memories),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	s.metrics.ObserveRetrieval(string(mode), "ok", len(memories), time.Since(start))

	return memories
}

// modePlan is the outcome of a mode-specific retrieval path before
// re-ranking.
type modePlan struct {
	candidates []rerank.Candidate
	// mustInclude holds records that may not be silently dropped by the
	// re-ranker (wayofdog user notes).
	mustInclude []rerank.Candidate
	topN        int
}

// namespaceQuery is one planned vector index query.
type namespaceQuery struct {
	filter vector.Filter
	// boostFn overrides boost per match when set (health mode scores a
	// profile-scoped hit higher when the hit is itself a vet report).
	boostFn   func(vector.Match) float64
	kind      string
	namespace string
	source    string
	boost     float64
	topK      int
	// cap truncates the query's results after the fact (wayofdog keeps at
	// most 3 conversation hits).
	cap int
}

// runQueries fans the planned queries out concurrently and joins the
// results. Each query failure is logged and contributes zero results; one
// failing namespace never aborts the others.
func (s *MemoryService) runQueries(ctx context.Context, logger *slog.Logger, queryVector []float32, queries []namespaceQuery) [][]rerank.Candidate {
	results := make([][]rerank.Candidate, len(queries))

	var wg sync.WaitGroup
	for i, nq := range queries {
		wg.Add(1)
		go func(i int, nq namespaceQuery) {
			defer wg.Done()
			results[i] = s.runQuery(ctx, logger, queryVector, nq)
		}(i, nq)
	}
	wg.Wait()

	return results
}

func (s *MemoryService) runQuery(ctx context.Context, logger *slog.Logger, queryVector []float32, nq namespaceQuery) []rerank.Candidate {
	matches, err := s.index.Query(ctx, nq.namespace, queryVector, nq.topK, nq.filter)
	if err != nil {
		logger.WarnContext(ctx, "Namespace query failed, proceeding without it",
			"kind", nq.kind,
			"namespace", nq.namespace,
			"error", ai.NewVectorIndexError(nq.namespace, err),
		)
		s.metrics.ObserveNamespaceQueryError(nq.kind)
		return nil
	}
	if nq.cap > 0 && len(matches) > nq.cap {
		matches = matches[:nq.cap]
	}

	candidates := make([]rerank.Candidate, 0, len(matches))
	for _, m := range matches {
		boost := nq.boost
		if nq.boostFn != nil {
			boost = nq.boostFn(m)
		}
		candidates = append(candidates, candidateFromMatch(m, nq.source, boost))
	}
	return candidates
}

func candidateFromMatch(m vector.Match, source string, boost float64) rerank.Candidate {
	text, _ := m.Metadata["text"].(string)
	createdAt, _ := m.Metadata["created_at"].(string)
	if stored, ok := m.Metadata["source_type"].(string); ok && stored != "" {
		source = stored
	}
	return rerank.Candidate{
		ID:            m.ID,
		Text:          text,
		CreatedAt:     createdAt,
		BaseScore:     m.Score,
		PriorityBoost: boost,
		SourceType:    source,
		Metadata:      m.Metadata,
	}
}

// mergeCandidates concatenates candidate lists, deduplicating by ID. When
// the same record was hit by two queries, the higher priority boost wins: a
// profile-scoped vet report keeps its profile boost even though the plain
// vet-report query saw it first.
func mergeCandidates(lists ...[]rerank.Candidate) []rerank.Candidate {
	seen := make(map[string]int)
	merged := make([]rerank.Candidate, 0)
	for _, list := range lists {
		for _, c := range list {
			if i, ok := seen[c.ID]; ok {
				if c.PriorityBoost > merged[i].PriorityBoost {
					merged[i] = c
				}
				continue
			}
			seen[c.ID] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged
}

// enforceMustInclude guarantees that when the must-include set is non-empty,
// at least one of its records survives into the final list. Up to five of
// them are injected by evicting the lowest-priority-boost entries.
func enforceMustInclude(ranked []rerank.Scored, mustInclude []rerank.Candidate, topN int, now time.Time) []rerank.Scored {
	if len(mustInclude) == 0 {
		return ranked
	}
	included := make(map[string]bool, len(mustInclude))
	for _, c := range mustInclude {
		included[c.ID] = true
	}
	for _, r := range ranked {
		if included[r.ID] {
			return ranked
		}
	}

	// None survived: score the forced records among themselves and take up
	// to five.
	forced := rerank.Rerank("", mustInclude, 5, now)

	for _, f := range forced {
		if topN <= 0 || len(ranked) < topN {
			ranked = append(ranked, f)
			continue
		}
		evict := lowestBoostIndex(ranked)
		if evict < 0 {
			break
		}
		ranked = append(ranked[:evict], ranked[evict+1:]...)
		ranked = append(ranked, f)
	}
	return ranked
}

// lowestBoostIndex picks the eviction victim: the entry with the smallest
// priority boost, ties broken by the smaller rerank score.
func lowestBoostIndex(ranked []rerank.Scored) int {
	victim := -1
	for i, r := range ranked {
		boost := r.PriorityBoost
		if boost == 0 {
			boost = 1.0
		}
		if victim < 0 {
			victim = i
			continue
		}
		victimBoost := ranked[victim].PriorityBoost
		if victimBoost == 0 {
			victimBoost = 1.0
		}
		if boost < victimBoost ||
			(boost == victimBoost && r.RerankScore < ranked[victim].RerankScore) {
			victim = i
		}
	}
	return victim
}

func (s *MemoryService) topK(q *Query) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return s.cfg.TopK
}
