package domain

import "time"

type Stage string

// Stage values double as statekit state ids, see session_fsm.go.
const (
	StageIdle             Stage = StateIdle
	StageFileSelected     Stage = StateFileSelected
	StageCheckingLegality Stage = StateCheckingLegality
	StageLegalConfirmed   Stage = StateLegalConfirmed
	StageAnalyzing        Stage = StateAnalyzing
	StageComplete         Stage = StateComplete
	StageRejected         Stage = StateRejected
	StageFailed           Stage = StateFailed
)

type StageEvent string

const (
	EventSelectFile   StageEvent = eventSelectFile
	EventCheck        StageEvent = eventCheck
	EventConfirmLegal StageEvent = eventConfirmLegal
	EventReject       StageEvent = eventReject
	EventAnalyze      StageEvent = eventAnalyze
	EventFinish       StageEvent = eventFinish
	EventFail         StageEvent = eventFail
	EventRetry        StageEvent = eventRetry
)

// IsTerminal reports whether no further processing happens without a retry.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageComplete, StageRejected, StageFailed:
		return true
	default:
		return false
	}
}

// AnalysisSession is the per-document record kept for the active session only.
type AnalysisSession struct {
	ID           string            `json:"id"`
	DocumentName string            `json:"documentName"`
	MimeType     string            `json:"mimeType"`
	SizeBytes    int64             `json:"sizeBytes"`
	StorageKey   string            `json:"storageKey,omitempty"`
	Stage        Stage             `json:"stage"`
	Analysis     *DocumentAnalysis `json:"analysis,omitempty"`
	Error        string            `json:"error,omitempty"`
	ChatHistory  []ChatExchange    `json:"chatHistory"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Advance applies one lifecycle event and stamps UpdatedAt.
func (s *AnalysisSession) Advance(event StageEvent, now time.Time) error {
	next, err := NextStage(s.Stage, event)
	if err != nil {
		return err
	}
	s.Stage = next
	s.UpdatedAt = now
	return nil
}

// AppendChat records an exchange and keeps at most limit entries.
func (s *AnalysisSession) AppendChat(exchange ChatExchange, limit int) {
	s.ChatHistory = append(s.ChatHistory, exchange)
	if limit > 0 && len(s.ChatHistory) > limit {
		s.ChatHistory = append([]ChatExchange(nil), s.ChatHistory[len(s.ChatHistory)-limit:]...)
	}
	s.UpdatedAt = exchange.Timestamp
}

// Clone returns a deep copy; stores hand out clones so callers cannot
// mutate stored state.
func (s *AnalysisSession) Clone() *AnalysisSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.Analysis != nil {
		analysis := s.Analysis.Clone()
		out.Analysis = &analysis
	}
	out.ChatHistory = append(make([]ChatExchange, 0, len(s.ChatHistory)), s.ChatHistory...)
	return &out
}
