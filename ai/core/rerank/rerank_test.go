package rerank

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRerank_Deterministic(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Text: "dog training tips", BaseScore: 0.8, CreatedAt: "2025-05-01T00:00:00Z"},
		{ID: "b", Text: "vet report vaccinations", BaseScore: 0.7, PriorityBoost: 2.0, CreatedAt: "2025-04-01T00:00:00Z"},
		{ID: "c", Text: "grooming schedule", BaseScore: 0.9},
	}

	first := Rerank("dog vaccinations", candidates, 10, fixedNow)
	second := Rerank("dog vaccinations", candidates, 10, fixedNow)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].RerankScore != second[i].RerankScore {
			t.Errorf("result %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRerank_SortedAndTruncated(t *testing.T) {
	candidates := []Candidate{
		{ID: "low", BaseScore: 0.1},
		{ID: "high", BaseScore: 0.9},
		{ID: "mid", BaseScore: 0.5},
	}

	results := Rerank("query", candidates, 2, fixedNow)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "high" || results[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [high mid]", results[0].ID, results[1].ID)
	}
	if results[0].RerankScore < results[1].RerankScore {
		t.Error("results not sorted descending by rerank score")
	}
}

func TestRerank_DefaultBoost(t *testing.T) {
	// Two identical candidates, one with an explicit 1.0 boost and one with
	// the zero-value default; scores must match exactly.
	candidates := []Candidate{
		{ID: "explicit", BaseScore: 0.6, PriorityBoost: 1.0},
		{ID: "default", BaseScore: 0.6},
	}
	results := Rerank("anything", candidates, 0, fixedNow)
	if results[0].RerankScore != results[1].RerankScore {
		t.Errorf("default boost score %v != explicit 1.0 boost score %v",
			results[1].RerankScore, results[0].RerankScore)
	}
}

func TestRerank_VetReportOutranksBookDespiteLowerSimilarity(t *testing.T) {
	// Scenario from the health mode weighting: base 0.7 with a 2.0 vet boost
	// must beat base 0.9 with a 1.3 book boost.
	candidates := []Candidate{
		{ID: "book", Text: "vaccination guidance", BaseScore: 0.9, PriorityBoost: 1.3, SourceType: "book"},
		{ID: "vet", Text: "vaccination record", BaseScore: 0.7, PriorityBoost: 2.0, SourceType: "user_document"},
	}

	results := Rerank("what does my dog's vet report say about vaccinations", candidates, 10, fixedNow)
	if results[0].ID != "vet" {
		t.Errorf("top result = %s, want vet (0.7*0.6*2.0 > 0.9*0.6*1.3)", results[0].ID)
	}
}

func TestRecencyScore(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		want      float64
		tolerance float64
	}{
		{"today", fixedNow.Format(time.RFC3339), 1.0, 0.01},
		{"half horizon", fixedNow.AddDate(0, 0, -182).Format(time.RFC3339), 0.5, 0.01},
		{"beyond horizon clamps to zero", "2020-01-01T00:00:00Z", 0, 0},
		{"future clamps to one", fixedNow.AddDate(0, 1, 0).Format(time.RFC3339), 1.0, 0},
		{"missing timestamp is neutral", "", 0.5, 0},
		{"garbage timestamp is neutral", "not-a-time", 0.5, 0},
		{"date only parses", fixedNow.AddDate(0, 0, -1).Format(time.DateOnly), 1.0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recencyScore(tt.createdAt, fixedNow)
			if diff := got - tt.want; diff > tt.tolerance || diff < -tt.tolerance {
				t.Errorf("recencyScore(%q) = %v, want %v ± %v", tt.createdAt, got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestKeywordOverlap(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"full overlap", "dog vet", "my dog saw the vet", 1.0},
		{"half overlap", "dog vaccinations", "the dog is healthy", 0.5},
		{"no overlap", "cat litter", "dog food bowl", 0},
		{"case insensitive", "DOG", "my dog", 1.0},
		{"empty query", "", "anything", 0},
		{"repeated tokens count once", "dog dog vet", "dog", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keywordOverlap(keywords(tt.query), tt.content)
			if got != tt.want {
				t.Errorf("keywordOverlap(%q, %q) = %v, want %v", tt.query, tt.content, got, tt.want)
			}
		})
	}
}

func TestRerank_ScoreFormula(t *testing.T) {
	// base 0.5, recency neutral 0.5, keyword overlap 1.0, boost 2.0:
	// (0.5*0.6 + 0.5*0.2 + 1.0*0.2) * 2.0 = 1.2
	candidates := []Candidate{
		{ID: "x", Text: "fetch", BaseScore: 0.5, PriorityBoost: 2.0},
	}
	results := Rerank("fetch", candidates, 1, fixedNow)
	want := 1.2
	if diff := results[0].RerankScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("RerankScore = %v, want %v", results[0].RerankScore, want)
	}
}

func TestRerank_EmptyCandidates(t *testing.T) {
	if results := Rerank("query", nil, 5, fixedNow); len(results) != 0 {
		t.Errorf("Rerank(nil) = %v, want empty", results)
	}
}
