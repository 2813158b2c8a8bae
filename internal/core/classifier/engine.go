// Package classifier decides whether a text is a legal document and builds
// the clause-level risk analysis for it.
package classifier

import (
	"strings"

	"github.com/lexora-app/lexora/internal/core/domain"
	"github.com/lexora-app/lexora/internal/core/rules"
)

const typePlaceholder = "{type}"

// Engine is safe for concurrent use; it only reads its rulebook.
type Engine struct {
	rules *rules.Rulebook
}

func New(rb *rules.Rulebook) *Engine {
	if rb == nil {
		rb = rules.MustDefault()
	}
	return &Engine{rules: rb}
}

// Classify never fails: unrecognisable text yields a non-legal,
// low-confidence analysis.
func (e *Engine) Classify(text string) domain.DocumentAnalysis {
	lower := strings.ToLower(text)

	isLegal := e.isLegal(lower)
	documentType := e.documentType(lower)
	confidence := e.confidence(lower)

	if !isLegal {
		tpl := e.rules.Summaries.NonLegal
		return domain.DocumentAnalysis{
			IsLegalDocument: false,
			DocumentType:    documentType,
			Confidence:      confidence,
			Summary:         summaryFrom(tpl, tpl.Title),
			Clauses:         []domain.Clause{},
			RiskSummary:     domain.RiskSummary{},
		}
	}

	tpl := e.rules.Summaries.Legal
	clauses := e.clauses()
	return domain.DocumentAnalysis{
		IsLegalDocument: true,
		DocumentType:    documentType,
		Confidence:      confidence,
		Summary:         summaryFrom(tpl, strings.ReplaceAll(tpl.Title, typePlaceholder, documentType)),
		Clauses:         clauses,
		RiskSummary:     domain.SummarizeRisk(clauses),
	}
}

// IsLegal exposes the detection step alone.
func (e *Engine) IsLegal(text string) bool {
	return e.isLegal(strings.ToLower(text))
}

// DocumentType exposes the type rules alone.
func (e *Engine) DocumentType(text string) string {
	return e.documentType(strings.ToLower(text))
}

// Confidence exposes the indicator score alone.
func (e *Engine) Confidence(text string) float64 {
	return e.confidence(strings.ToLower(text))
}

func (e *Engine) isLegal(lower string) bool {
	ld := e.rules.LegalDetection
	return countMatches(lower, ld.Keywords) >= ld.KeywordThreshold ||
		countMatches(lower, ld.Phrases) >= ld.PhraseThreshold
}

func (e *Engine) documentType(lower string) string {
	for _, rule := range e.rules.DocumentTypes.Rules {
		if ruleMatches(lower, rule) {
			return rule.Label
		}
	}
	return e.rules.DocumentTypes.Default
}

func (e *Engine) confidence(lower string) float64 {
	conf := e.rules.Confidence
	matches := countMatches(lower, conf.Indicators)
	score := float64(matches) / float64(len(conf.Indicators)) * 100
	if score < conf.Min {
		return conf.Min
	}
	if score > conf.Max {
		return conf.Max
	}
	return score
}

func (e *Engine) clauses() []domain.Clause {
	out := make([]domain.Clause, 0, len(e.rules.Clauses))
	for _, entry := range e.rules.Clauses {
		out = append(out, domain.Clause{
			ID:           entry.ID,
			Title:        entry.Title,
			Category:     entry.Category,
			OriginalText: entry.OriginalText,
			PlainEnglish: entry.PlainEnglish,
			RiskLevel:    entry.RiskLevel,
			RiskReason:   entry.RiskReason,
			Suggestions:  entry.Suggestions,
		}.Clone())
	}
	return out
}

func summaryFrom(tpl rules.SummaryTemplate, title string) domain.Summary {
	return domain.Summary{
		Title:     title,
		Overview:  tpl.Overview,
		KeyPoints: append(make([]string, 0, len(tpl.KeyPoints)), tpl.KeyPoints...),
		RiskLevel: tpl.RiskLevel,
	}
}

// countMatches counts distinct terms present in lower; repeats count once.
func countMatches(lower string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}

func ruleMatches(lower string, rule rules.TypeRule) bool {
	for _, term := range rule.All {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	if len(rule.Any) == 0 {
		return len(rule.All) > 0
	}
	return countMatches(lower, rule.Any) > 0
}
