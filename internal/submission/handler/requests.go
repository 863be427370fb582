package handler

import (
	"strings"

	"safeballot/internal/ballot"
	dErrors "safeballot/pkg/domain-errors"
)

const (
	maxSelections = 200
	maxFieldLen   = 512
)

// SubmitRequest is the body of POST /ballots/{ballotID}/votes.
type SubmitRequest struct {
	Slug string `json:"slug"`
	// Selections maps question index to the raw answer.
	Selections map[int]ballot.RawSelection `json:"selections"`
	// EnteredKey is set when the voter re-typed the key at confirmation.
	EnteredKey *string       `json:"enteredKey,omitempty"`
	Voter      *VoterPayload `json:"voter,omitempty"`
}

type VoterPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Selections) > maxSelections {
		return dErrors.New(dErrors.CodeValidation, "too many selections")
	}
	fields := []string{r.Slug}
	if r.EnteredKey != nil {
		fields = append(fields, *r.EnteredKey)
	}
	if r.Voter != nil {
		fields = append(fields, r.Voter.Name, r.Voter.Email)
	}
	for _, sel := range r.Selections {
		fields = append(fields, sel.Value, sel.WriteInText)
	}
	for _, f := range fields {
		if len(f) > maxFieldLen {
			return dErrors.New(dErrors.CodeValidation, "fields must be at most 512 characters")
		}
	}
	r.Slug = strings.TrimSpace(r.Slug)
	return nil
}
