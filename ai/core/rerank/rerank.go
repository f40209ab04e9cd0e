// Package rerank implements the second-pass heuristic scorer applied to the
// similarity-ranked candidate set. Scoring is a pure function of the
// candidates, the query and an injected clock, so it is deterministic and
// unit-testable in isolation.
package rerank

import (
	"sort"
	"strings"
	"time"
)

// Scoring weights. Similarity dominates; recency and keyword overlap are
// tiebreakers, and the source-type boost multiplies the combined score.
const (
	baseWeight    = 0.6
	recencyWeight = 0.2
	keywordWeight = 0.2

	// recencyHorizonDays is the window over which recency decays to zero.
	recencyHorizonDays = 365

	// neutralRecency is used when a candidate has no parseable timestamp.
	neutralRecency = 0.5
)

// Candidate is one retrieval hit entering the re-ranker.
type Candidate struct {
	Metadata map[string]any
	ID       string
	// Text is the stored content preview used for keyword overlap.
	Text string
	// SourceType tags where the record came from (conversation,
	// user_document, book, user_book_note).
	SourceType string
	// CreatedAt is the record timestamp, RFC3339 or date-only. Empty or
	// unparseable timestamps score a neutral recency.
	CreatedAt string
	// BaseScore is the cosine similarity from the vector index.
	BaseScore float64
	// PriorityBoost is the source-type weight. Zero means unset and
	// defaults to 1.0 so un-boosted sources are not distorted.
	PriorityBoost float64
}

// Scored is a candidate with its computed rerank score.
type Scored struct {
	Candidate
	RerankScore float64
}

// Rerank scores and sorts candidates, returning at most topN results in
// descending rerank-score order. now is the reference time for recency decay.
func Rerank(query string, candidates []Candidate, topN int, now time.Time) []Scored {
	scored := make([]Scored, 0, len(candidates))
	queryKeywords := keywords(query)

	for _, c := range candidates {
		boost := c.PriorityBoost
		if boost == 0 {
			boost = 1.0
		}
		score := c.BaseScore*baseWeight +
			recencyScore(c.CreatedAt, now)*recencyWeight +
			keywordOverlap(queryKeywords, c.Text)*keywordWeight
		scored = append(scored, Scored{
			Candidate:   c,
			RerankScore: score * boost,
		})
	}

	// Stable sort keeps the incoming order for exact ties, which keeps the
	// output deterministic for a fixed candidate slice.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})

	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// recencyScore decays linearly from 1 to 0 over the horizon. Records without
// a parseable timestamp get a neutral score rather than being punished.
func recencyScore(createdAt string, now time.Time) float64 {
	ts, ok := parseTimestamp(createdAt)
	if !ok {
		return neutralRecency
	}
	days := now.Sub(ts).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := 1 - days/recencyHorizonDays
	if score < 0 {
		return 0
	}
	return score
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// keywordOverlap is |query ∩ content| / max(1, |query|) on lowercased
// whitespace tokens. No stemming, no stopwords; naive on purpose.
func keywordOverlap(queryKeywords map[string]struct{}, content string) float64 {
	if len(queryKeywords) == 0 {
		return 0
	}
	overlap := 0
	for keyword := range keywords(content) {
		if _, ok := queryKeywords[keyword]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryKeywords))
}

func keywords(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		set[field] = struct{}{}
	}
	return set
}
