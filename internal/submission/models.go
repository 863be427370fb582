package submission

import (
	"encoding/json"

	"safeballot/internal/ballot"
)

// Kind classifies a failed submission for the UI.
type Kind string

const (
	KindIneligible Kind = "ineligible"
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
)

// Next is the screen the UI shows after a successful submission.
type Next string

const (
	NextConfirmation Next = "confirmation"
	NextResults      Next = "results"
)

// Tier identifies a transport in the fallback chain.
type Tier string

const (
	TierPrimary Tier = "primary"
	TierDirect  Tier = "direct"
	TierLocal   Tier = "local"
)

const (
	MsgVerifyFirst   = "Please complete verification before voting."
	MsgInvalidKey    = "The digital key you entered does not match the key issued for this ballot."
	MsgNoSelections  = "Please answer at least one question before submitting."
	MsgIneligible    = "You are not eligible to vote in this ballot."
	MsgTryAgain      = "We could not submit your vote, please try again."
	LocalOnlyWarning = "Your vote was saved on this device only. The election server could not be reached, so your ballot may not be visible to election administrators."
	DefaultVoterName = "Registered Voter"
	writeInChoiceID  = "write-in"
)

// Request is one vote submission.
type Request struct {
	Ballot ballot.Record
	// Responses maps question index to the voter's answer.
	Responses map[int]ballot.Response
	// RequestPath is the path the voter reached the ballot by.
	RequestPath string
	// EnteredKey is the key re-entered at the confirmation prompt, if any.
	EnteredKey *string
	// Voter is the in-session voter, when the UI still holds one.
	Voter *VoterDetails
}

type VoterDetails struct {
	Name  string
	Email string
}

// Result is the outcome of Submit. OK results and failures take different
// wire shapes.
type Result struct {
	OK      bool
	Durable bool
	Next    Next
	Warning string
	Tier    Tier
	VoterID string

	Kind    Kind
	Message string
}

func success(tier Tier, next Next, voterID string) Result {
	return Result{OK: true, Durable: true, Tier: tier, Next: next, VoterID: voterID}
}

func failure(kind Kind, msg string) Result {
	return Result{Kind: kind, Message: msg}
}

type okWire struct {
	OK      bool   `json:"ok"`
	Durable bool   `json:"durable"`
	Next    Next   `json:"next,omitempty"`
	Warning string `json:"warning,omitempty"`
	Tier    Tier   `json:"tier,omitempty"`
	VoterID string `json:"voterId,omitempty"`
}

type failWire struct {
	OK      bool   `json:"ok"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(okWire{
			OK:      true,
			Durable: r.Durable,
			Next:    r.Next,
			Warning: r.Warning,
			Tier:    r.Tier,
			VoterID: r.VoterID,
		})
	}
	return json.Marshal(failWire{Kind: r.Kind, Message: r.Message})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		okWire
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result{
		OK:      wire.OK,
		Durable: wire.Durable,
		Next:    wire.Next,
		Warning: wire.Warning,
		Tier:    wire.Tier,
		VoterID: wire.VoterID,
		Kind:    wire.Kind,
		Message: wire.Message,
	}
	return nil
}
