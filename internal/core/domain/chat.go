package domain

import "time"

type ChatExchange struct {
	DocumentID string    `json:"documentId,omitempty"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Matched    bool      `json:"matched"`
	Timestamp  time.Time `json:"timestamp"`
}
