package domain

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

type Clause struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	OriginalText string    `json:"originalText"`
	PlainEnglish string    `json:"plainEnglish"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	RiskReason   string    `json:"riskReason"`
	Suggestions  []string  `json:"suggestions"`
}

type Summary struct {
	Title     string    `json:"title"`
	Overview  string    `json:"overview"`
	KeyPoints []string  `json:"keyPoints"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

type RiskSummary struct {
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
	TotalClauses int `json:"totalClauses"`
}

// DocumentAnalysis is the structured result of classifying one document.
// RiskSummary.TotalClauses always equals len(Clauses).
type DocumentAnalysis struct {
	IsLegalDocument bool        `json:"isLegalDocument"`
	DocumentType    string      `json:"documentType,omitempty"`
	Confidence      float64     `json:"confidence"`
	Summary         Summary     `json:"summary"`
	Clauses         []Clause    `json:"clauses"`
	RiskSummary     RiskSummary `json:"riskSummary"`
}

// SummarizeRisk counts clauses by risk level.
func SummarizeRisk(clauses []Clause) RiskSummary {
	var out RiskSummary
	for _, clause := range clauses {
		switch clause.RiskLevel {
		case RiskHigh:
			out.High++
		case RiskMedium:
			out.Medium++
		default:
			out.Low++
		}
	}
	out.TotalClauses = out.High + out.Medium + out.Low
	return out
}

// Clone returns a deep copy so callers never share slices with rule tables.
func (c Clause) Clone() Clause {
	out := c
	out.Suggestions = append(make([]string, 0, len(c.Suggestions)), c.Suggestions...)
	return out
}

func (a DocumentAnalysis) Clone() DocumentAnalysis {
	out := a
	out.Summary.KeyPoints = append(make([]string, 0, len(a.Summary.KeyPoints)), a.Summary.KeyPoints...)
	out.Clauses = make([]Clause, 0, len(a.Clauses))
	for _, clause := range a.Clauses {
		out.Clauses = append(out.Clauses, clause.Clone())
	}
	return out
}
