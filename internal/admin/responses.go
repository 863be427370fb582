package admin

import (
	"encoding/json"
	"time"

	"safeballot/pkg/platform/audit"
)

// ClearStatusResponse is the HTTP response DTO for a debug voter reset.
type ClearStatusResponse struct {
	ProfileID string    `json:"profile_id"`
	BallotID  string    `json:"ballot_id"`
	Cleared   bool      `json:"cleared"`
	ClearedAt time.Time `json:"cleared_at"`
}

// PendingVoteResponse exposes a vote that only reached the device store.
type PendingVoteResponse struct {
	ProfileID       string          `json:"profile_id"`
	BallotID        string          `json:"ballot_id"`
	SavedAt         time.Time       `json:"saved_at"`
	FailureCategory string          `json:"failure_category,omitempty"`
	FailureStatus   int             `json:"failure_status,omitempty"`
	Payload         json.RawMessage `json:"payload"`
}

// AuditEventsResponse wraps a profile's audit trail for HTTP response.
type AuditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}
