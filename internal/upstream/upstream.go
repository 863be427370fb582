// Package upstream declares the election backend collaborators the voter
// flow depends on, and the normalized failure taxonomy their adapters return.
package upstream

//go:generate mockgen -source=upstream.go -destination=mocks/mocks.go -package=mocks BallotService,AuthService,DirectVoteSender

import (
	"context"
	"encoding/json"
)

// Credential is the bearer credential attached to an outgoing call. It is
// always passed explicitly; adapters never read credentials from context.
type Credential struct {
	BearerToken string
}

// IsZero reports whether no credential is set.
func (c Credential) IsZero() bool {
	return c.BearerToken == ""
}

// VoterDetails identifies a voter to the backend.
type VoterDetails struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// RegisterVoterResult is the outcome of a public voter registration.
type RegisterVoterResult struct {
	VoterID string
}

// RankEntry is one question's ranked selection.
type RankEntry struct {
	Index int `json:"index"`
}

// VoteEntry maps a selection onto backend question and choice IDs.
type VoteEntry struct {
	QuestionID string `json:"questionId"`
	ChoiceID   string `json:"choiceId"`
	Rank       int    `json:"rank"`
	WriteIn    string `json:"writeIn,omitempty"`
}

// VotePayload is the wire body of a cast vote.
type VotePayload struct {
	Rankings      map[string]RankEntry `json:"rankings"`
	Votes         []VoteEntry          `json:"votes"`
	Voter         *VoterDetails        `json:"voter,omitempty"`
	DigitalKey    string               `json:"digitalKey,omitempty"`
	IsQuickBallot bool                 `json:"isQuickBallot"`
}

// CastVoteResult is the backend acknowledgment of a vote.
type CastVoteResult struct {
	VoterID   string `json:"voterId,omitempty"`
	VoterName string `json:"voterName,omitempty"`
}

// BallotService is the election backend.
type BallotService interface {
	// GetBallot returns the raw ballot document; callers normalize it.
	GetBallot(ctx context.Context, ballotID string) (json.RawMessage, error)
	RegisterVoter(ctx context.Context, ballotID string, voter VoterDetails) (RegisterVoterResult, error)
	// SendVoterIDEmail asks the backend to mail the voter identifier.
	SendVoterIDEmail(ctx context.Context, ballotID string, voter VoterDetails) (voterID string, err error)
	CastVote(ctx context.Context, cred Credential, ballotID string, payload VotePayload) (CastVoteResult, error)
}

// AuthService issues server-attested digital keys.
type AuthService interface {
	GenerateDigitalKey(ctx context.Context, email, ballotID string) (string, error)
}

// DirectVoteSender posts an already-encoded vote body straight to the
// backend's vote endpoint.
type DirectVoteSender interface {
	PostVote(ctx context.Context, cred Credential, ballotID string, body []byte) error
}
