// Package rules holds the lookup tables behind document classification and
// the chat responder. Tables are parsed once and treated as read-only.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexora-app/lexora/internal/core/domain"
)

//go:embed default_rules.yaml
var defaultRules []byte

type Rulebook struct {
	LegalDetection LegalDetection `yaml:"legal_detection"`
	DocumentTypes  DocumentTypes  `yaml:"document_types"`
	Confidence     Confidence     `yaml:"confidence"`
	Summaries      Summaries      `yaml:"summaries"`
	Clauses        []ClauseEntry  `yaml:"clauses"`
	Chat           Chat           `yaml:"chat"`
}

type LegalDetection struct {
	KeywordThreshold int      `yaml:"keyword_threshold"`
	PhraseThreshold  int      `yaml:"phrase_threshold"`
	Keywords         []string `yaml:"keywords"`
	Phrases          []string `yaml:"phrases"`
}

type DocumentTypes struct {
	Default string     `yaml:"default"`
	Rules   []TypeRule `yaml:"rules"`
}

// TypeRule matches when every All term and at least one Any term occur.
type TypeRule struct {
	Label string   `yaml:"label"`
	Any   []string `yaml:"any"`
	All   []string `yaml:"all"`
}

type Confidence struct {
	Min        float64  `yaml:"min"`
	Max        float64  `yaml:"max"`
	Indicators []string `yaml:"indicators"`
}

type Summaries struct {
	Legal    SummaryTemplate `yaml:"legal"`
	NonLegal SummaryTemplate `yaml:"non_legal"`
}

// SummaryTemplate.Title may contain {type}, replaced with the document type.
type SummaryTemplate struct {
	Title     string           `yaml:"title"`
	Overview  string           `yaml:"overview"`
	KeyPoints []string         `yaml:"key_points"`
	RiskLevel domain.RiskLevel `yaml:"risk_level"`
}

type ClauseEntry struct {
	ID           string           `yaml:"id"`
	Title        string           `yaml:"title"`
	Category     string           `yaml:"category"`
	OriginalText string           `yaml:"original_text"`
	PlainEnglish string           `yaml:"plain_english"`
	RiskLevel    domain.RiskLevel `yaml:"risk_level"`
	RiskReason   string           `yaml:"risk_reason"`
	Suggestions  []string         `yaml:"suggestions"`
}

type Chat struct {
	DefaultAnswer      string         `yaml:"default_answer"`
	Responses          []ChatResponse `yaml:"responses"`
	SuggestedQuestions []string       `yaml:"suggested_questions"`
}

type ChatResponse struct {
	Trigger string `yaml:"trigger"`
	Answer  string `yaml:"answer"`
}

// Default returns the rulebook compiled into the binary.
func Default() (*Rulebook, error) {
	return Parse(defaultRules)
}

// Load reads a rulebook override from path, or the default when path is empty.
func Load(path string) (*Rulebook, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rulebook %s: %w", path, err)
	}
	rb, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("rulebook %s: %w", path, err)
	}
	return rb, nil
}

func Parse(raw []byte) (*Rulebook, error) {
	var rb Rulebook
	if err := yaml.Unmarshal(raw, &rb); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse rulebook", err)
	}
	rb.normalize()
	if err := rb.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate rulebook", err)
	}
	return &rb, nil
}

// MustDefault panics if the embedded rulebook is broken; tests cover it.
func MustDefault() *Rulebook {
	rb, err := Default()
	if err != nil {
		panic(err)
	}
	return rb
}

func (rb *Rulebook) normalize() {
	rb.LegalDetection.Keywords = lowerAll(rb.LegalDetection.Keywords)
	rb.LegalDetection.Phrases = lowerAll(rb.LegalDetection.Phrases)
	for i := range rb.DocumentTypes.Rules {
		rb.DocumentTypes.Rules[i].Any = lowerAll(rb.DocumentTypes.Rules[i].Any)
		rb.DocumentTypes.Rules[i].All = lowerAll(rb.DocumentTypes.Rules[i].All)
	}
	rb.Confidence.Indicators = lowerAll(rb.Confidence.Indicators)

	rb.Summaries.Legal.KeyPoints = nonNil(rb.Summaries.Legal.KeyPoints)
	rb.Summaries.NonLegal.KeyPoints = nonNil(rb.Summaries.NonLegal.KeyPoints)
	for i := range rb.Clauses {
		rb.Clauses[i].Suggestions = nonNil(rb.Clauses[i].Suggestions)
	}
	if rb.Clauses == nil {
		rb.Clauses = []ClauseEntry{}
	}

	for i := range rb.Chat.Responses {
		rb.Chat.Responses[i].Trigger = strings.ToLower(strings.TrimSpace(rb.Chat.Responses[i].Trigger))
	}
	rb.Chat.SuggestedQuestions = nonNil(rb.Chat.SuggestedQuestions)
}

func (rb *Rulebook) validate() error {
	var errs []error

	ld := rb.LegalDetection
	if len(ld.Keywords) == 0 {
		errs = append(errs, errors.New("legal_detection.keywords must not be empty"))
	}
	if ld.KeywordThreshold <= 0 {
		errs = append(errs, errors.New("legal_detection.keyword_threshold must be positive"))
	}
	if ld.PhraseThreshold <= 0 {
		errs = append(errs, errors.New("legal_detection.phrase_threshold must be positive"))
	}
	errs = append(errs, emptyTerms("legal_detection.keywords", ld.Keywords)...)
	errs = append(errs, emptyTerms("legal_detection.phrases", ld.Phrases)...)

	if strings.TrimSpace(rb.DocumentTypes.Default) == "" {
		errs = append(errs, errors.New("document_types.default must not be empty"))
	}
	for i, rule := range rb.DocumentTypes.Rules {
		if strings.TrimSpace(rule.Label) == "" {
			errs = append(errs, fmt.Errorf("document_types.rules[%d].label must not be empty", i))
		}
		if len(rule.Any) == 0 && len(rule.All) == 0 {
			errs = append(errs, fmt.Errorf("document_types.rules[%d] needs any or all terms", i))
		}
	}

	conf := rb.Confidence
	if len(conf.Indicators) == 0 {
		errs = append(errs, errors.New("confidence.indicators must not be empty"))
	}
	if conf.Min < 0 || conf.Max > 100 || conf.Min > conf.Max {
		errs = append(errs, fmt.Errorf("confidence bounds [%v, %v] must satisfy 0 <= min <= max <= 100", conf.Min, conf.Max))
	}

	if !rb.Summaries.Legal.RiskLevel.Valid() {
		errs = append(errs, fmt.Errorf("summaries.legal.risk_level %q is invalid", rb.Summaries.Legal.RiskLevel))
	}
	if !rb.Summaries.NonLegal.RiskLevel.Valid() {
		errs = append(errs, fmt.Errorf("summaries.non_legal.risk_level %q is invalid", rb.Summaries.NonLegal.RiskLevel))
	}

	seen := make(map[string]struct{}, len(rb.Clauses))
	for i, clause := range rb.Clauses {
		if clause.ID == "" {
			errs = append(errs, fmt.Errorf("clauses[%d].id must not be empty", i))
		} else if _, dup := seen[clause.ID]; dup {
			errs = append(errs, fmt.Errorf("clauses[%d].id %q is duplicated", i, clause.ID))
		}
		seen[clause.ID] = struct{}{}
		if !clause.RiskLevel.Valid() {
			errs = append(errs, fmt.Errorf("clauses[%d].risk_level %q is invalid", i, clause.RiskLevel))
		}
	}

	if strings.TrimSpace(rb.Chat.DefaultAnswer) == "" {
		errs = append(errs, errors.New("chat.default_answer must not be empty"))
	}
	for i, resp := range rb.Chat.Responses {
		if resp.Trigger == "" {
			errs = append(errs, fmt.Errorf("chat.responses[%d].trigger must not be empty", i))
		}
	}

	return errors.Join(errs...)
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		out = append(out, strings.ToLower(strings.TrimSpace(term)))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func emptyTerms(field string, terms []string) []error {
	var errs []error
	for i, term := range terms {
		if term == "" {
			errs = append(errs, fmt.Errorf("%s[%d] must not be empty", field, i))
		}
	}
	return errs
}
