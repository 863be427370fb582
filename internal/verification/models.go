package verification

import (
	"strings"

	"safeballot/internal/digitalkey"
)

// Variant is the flow chosen once when a voter enters verification.
type Variant string

const (
	VariantRegistration Variant = "registration"
	VariantLogin        Variant = "login"
)

// State is a step of the flow. Ready and Exited are terminal.
type State string

const (
	StateIdentity State = "identity"
	StateScan     State = "scan"
	StateConfirm  State = "confirm"
	StateVerified State = "verified"

	// StateReady hands the voter to the voting UI.
	StateReady State = "ready"
	// StateExited leaves the flow, e.g. back to the ballot landing page.
	StateExited State = "exited"
)

// IsTerminal reports whether the flow has ended.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateExited
}

// IdentityRecord is the structured output of a document scan.
type IdentityRecord struct {
	FullName       string `json:"fullName,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	BirthDate      string `json:"birthDate,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
}

// DisplayName is FullName, or first and last name joined.
func (r IdentityRecord) DisplayName() string {
	if n := strings.TrimSpace(r.FullName); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// IsEmpty reports whether the scan yielded nothing usable.
func (r IdentityRecord) IsEmpty() bool {
	return r.DisplayName() == "" && strings.TrimSpace(r.DocumentNumber) == ""
}

// VoterDetails is what the identity step collects.
type VoterDetails struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// StepData is the payload of onComplete for the current step. Only the
// fields relevant to that step are read.
type StepData struct {
	Voter *VoterDetails `json:"voter,omitempty"`

	// Identity carries fields already extracted by the client; otherwise
	// CaptureRef names a capture to be extracted by the capture service.
	Identity   *IdentityRecord `json:"identity,omitempty"`
	CaptureRef string          `json:"captureRef,omitempty"`
}

// StartRequest begins or resumes verification for a ballot.
type StartRequest struct {
	BallotID      string
	Slug          string
	CameFromLogin bool
}

// View is what the UI renders for the current step.
type View struct {
	BallotID      string                `json:"ballotId"`
	Variant       Variant               `json:"variant,omitempty"`
	State         State                 `json:"state"`
	Identity      *IdentityRecord       `json:"identity,omitempty"`
	DigitalKey    string                `json:"digitalKey,omitempty"`
	KeyProvenance digitalkey.Provenance `json:"keyProvenance,omitempty"`
	Message       string                `json:"message,omitempty"`
	Warning       string                `json:"warning,omitempty"`
	// VoterToken is the bearer the voting UI presents when it submits.
	VoterToken string `json:"voterToken,omitempty"`
	// Resumed is set when an earlier verification was found and no step ran.
	Resumed bool `json:"resumed,omitempty"`
}

// PendingElectionMessage replaces the key on the registration variant.
const PendingElectionMessage = "Your registration is complete. You will be able to vote with your digital key once the election starts."
