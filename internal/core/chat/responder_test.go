package chat

import (
	"strings"
	"testing"

	"github.com/lexora-app/lexora/internal/core/rules"
)

func TestResponderAnswers(t *testing.T) {
	responder := New(rules.MustDefault())

	tests := []struct {
		question    string
		wantMatched bool
		wantPrefix  string
	}{
		{question: "What is the rent amount?", wantMatched: true, wantPrefix: "According to your rental agreement"},
		{question: "Can I have pets?", wantMatched: true, wantPrefix: "The document mentions a pet policy"},
		{question: "HOW MUCH NOTICE do I need?", wantMatched: true, wantPrefix: "For lease termination"},
		{question: "Tell me about the security deposit", wantMatched: true, wantPrefix: "Your security deposit is $2,500"},
		{question: "what about landlord entry?", wantMatched: true, wantPrefix: "Your landlord can enter"},
		{question: "Explain liability", wantMatched: true, wantPrefix: "There's a concerning liability"},
		{question: "who handles maintenance", wantMatched: true, wantPrefix: "The landlord is responsible"},
		{question: "is there automatic renewal", wantMatched: true, wantPrefix: "Yes, your lease automatically renews"},
		{question: "asdf", wantMatched: false, wantPrefix: "I can help you understand your legal document"},
		{question: "", wantMatched: false, wantPrefix: "I can help you understand your legal document"},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			answer, matched := responder.Lookup(tc.question)
			if matched != tc.wantMatched {
				t.Fatalf("expected matched=%v, got %v", tc.wantMatched, matched)
			}
			if !strings.HasPrefix(answer, tc.wantPrefix) {
				t.Fatalf("expected answer starting with %q, got %q", tc.wantPrefix, answer)
			}
		})
	}
}

func TestResponderFirstTriggerWins(t *testing.T) {
	responder := New(rules.MustDefault())

	// "liability" precedes "maintenance" in the dictionary.
	answer := responder.Answer("maintenance and liability")
	if !strings.HasPrefix(answer, "There's a concerning liability") {
		t.Fatalf("expected liability answer, got %q", answer)
	}
}

func TestSuggestedQuestionsAreCopied(t *testing.T) {
	responder := New(rules.MustDefault())

	questions := responder.SuggestedQuestions()
	if len(questions) != 6 {
		t.Fatalf("expected 6 suggested questions, got %d", len(questions))
	}
	questions[0] = "mutated"
	if responder.SuggestedQuestions()[0] == "mutated" {
		t.Fatalf("expected suggestions to be copied")
	}
}
