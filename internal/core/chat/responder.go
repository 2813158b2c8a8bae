// Package chat answers document questions from a fixed trigger dictionary.
package chat

import (
	"strings"

	"github.com/lexora-app/lexora/internal/core/rules"
)

type Responder struct {
	defaultAnswer string
	responses     []rules.ChatResponse
	suggestions   []string
}

func New(rb *rules.Rulebook) *Responder {
	if rb == nil {
		rb = rules.MustDefault()
	}
	return &Responder{
		defaultAnswer: rb.Chat.DefaultAnswer,
		responses:     rb.Chat.Responses,
		suggestions:   rb.Chat.SuggestedQuestions,
	}
}

// Lookup returns the answer of the first trigger contained in the question.
// Triggers are already lower-case.
func (r *Responder) Lookup(question string) (string, bool) {
	lower := strings.ToLower(question)
	for _, resp := range r.responses {
		if strings.Contains(lower, resp.Trigger) {
			return resp.Answer, true
		}
	}
	return r.defaultAnswer, false
}

func (r *Responder) Answer(question string) string {
	answer, _ := r.Lookup(question)
	return answer
}

func (r *Responder) SuggestedQuestions() []string {
	return append(make([]string, 0, len(r.suggestions)), r.suggestions...)
}
