package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events election administrators rely on:
	// vote outcomes, key issuance, voter registration.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers privileged or unusual actions such as debug
	// resets and eligibility rejections.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine flow activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	ProfileID string        `json:"profile_id"`
	BallotID  string        `json:"ballot_id,omitempty"`
	Action    string        `json:"action"`
	// Outcome is a short machine-readable result, e.g. "server", "fallback",
	// "durable", "local".
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// ActorID is set when an operator acts on a profile, e.g. debug resets.
	ActorID string `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	EventDigitalKeyIssued        AuditEvent = "digital_key_issued"
	EventVoterRegistered         AuditEvent = "voter_registered"
	EventVoterRegistrationFailed AuditEvent = "voter_registration_failed"
	EventVerificationCompleted   AuditEvent = "verification_completed"

	EventVoteSubmitted     AuditEvent = "vote_submitted"
	EventVoteStoredLocally AuditEvent = "vote_stored_locally"
	EventVoteIneligible    AuditEvent = "vote_ineligible"
	EventVoteFailed        AuditEvent = "vote_failed"

	EventVoterStatusCleared AuditEvent = "voter_status_cleared"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDigitalKeyIssued:        CategoryCompliance,
	EventVoterRegistered:         CategoryCompliance,
	EventVoterRegistrationFailed: CategoryCompliance,
	EventVoteSubmitted:           CategoryCompliance,
	EventVoteStoredLocally:       CategoryCompliance,
	EventVoteFailed:              CategoryCompliance,

	EventVoteIneligible:     CategorySecurity,
	EventVoterStatusCleared: CategorySecurity,

	EventVerificationCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByProfile(ctx context.Context, profileID string) ([]Event, error)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
