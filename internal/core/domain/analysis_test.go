package domain

import "testing"

func TestSummarizeRiskCountsEveryClause(t *testing.T) {
	clauses := []Clause{
		{ID: "1", RiskLevel: RiskLow},
		{ID: "2", RiskLevel: RiskHigh},
		{ID: "3", RiskLevel: RiskMedium},
		{ID: "4", RiskLevel: RiskMedium},
	}
	got := SummarizeRisk(clauses)
	want := RiskSummary{High: 1, Medium: 2, Low: 1, TotalClauses: 4}
	if got != want {
		t.Fatalf("SummarizeRisk() = %+v, want %+v", got, want)
	}
}

func TestSummarizeRiskEmpty(t *testing.T) {
	if got := SummarizeRisk(nil); got != (RiskSummary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestClauseCloneDoesNotShareSuggestions(t *testing.T) {
	original := Clause{ID: "1", Suggestions: []string{"a"}}
	clone := original.Clone()
	clone.Suggestions[0] = "b"
	if original.Suggestions[0] != "a" {
		t.Fatalf("clone mutated original suggestions")
	}

	empty := Clause{}.Clone()
	if empty.Suggestions == nil {
		t.Fatalf("expected non-nil suggestions on clone")
	}
}

func TestDocumentAnalysisCloneIsDeep(t *testing.T) {
	original := DocumentAnalysis{
		Summary: Summary{KeyPoints: []string{"a"}},
		Clauses: []Clause{{ID: "1", Suggestions: []string{"s"}}},
	}
	clone := original.Clone()
	clone.Summary.KeyPoints[0] = "changed"
	clone.Clauses[0].Suggestions[0] = "changed"

	if original.Summary.KeyPoints[0] != "a" || original.Clauses[0].Suggestions[0] != "s" {
		t.Fatalf("expected original to be untouched, got %+v", original)
	}
}
