package handler

import (
	"strings"

	"safeballot/internal/verification"
	dErrors "safeballot/pkg/domain-errors"
)

const (
	maxFieldLen = 256
	maxSlugLen  = 512
)

// LandingRequest is the body of POST /ballots/{ballotID}/landing.
type LandingRequest struct {
	Slug          string `json:"slug"`
	CameFromLogin bool   `json:"cameFromLogin"`
}

func (r *LandingRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Slug) > maxSlugLen {
		return dErrors.New(dErrors.CodeValidation, "slug must be at most 512 characters")
	}
	r.Slug = strings.TrimSpace(r.Slug)
	return nil
}

// StartRequest is the body of POST /ballots/{ballotID}/verification/start.
type StartRequest struct {
	Slug          string `json:"slug"`
	CameFromLogin bool   `json:"cameFromLogin"`
}

func (r *StartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Slug) > maxSlugLen {
		return dErrors.New(dErrors.CodeValidation, "slug must be at most 512 characters")
	}
	r.Slug = strings.TrimSpace(r.Slug)
	return nil
}

// CompleteRequest is the body of POST /ballots/{ballotID}/verification/complete.
// Which fields matter depends on the current step.
type CompleteRequest struct {
	Voter      *VoterPayload    `json:"voter,omitempty"`
	Identity   *IdentityPayload `json:"identity,omitempty"`
	CaptureRef string           `json:"captureRef,omitempty"`
}

type VoterPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type IdentityPayload struct {
	FullName       string `json:"fullName"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	BirthDate      string `json:"birthDate"`
	DocumentNumber string `json:"documentNumber"`
	Nationality    string `json:"nationality"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	fields := []string{r.CaptureRef}
	if r.Voter != nil {
		fields = append(fields, r.Voter.Name, r.Voter.Email)
	}
	if r.Identity != nil {
		fields = append(fields, r.Identity.FullName, r.Identity.FirstName, r.Identity.LastName,
			r.Identity.BirthDate, r.Identity.DocumentNumber, r.Identity.Nationality)
	}
	for _, f := range fields {
		if len(f) > maxFieldLen {
			return dErrors.New(dErrors.CodeValidation, "fields must be at most 256 characters")
		}
	}
	r.CaptureRef = strings.TrimSpace(r.CaptureRef)
	return nil
}

// StepData converts the request into the flow's step payload.
func (r *CompleteRequest) StepData() verification.StepData {
	data := verification.StepData{CaptureRef: r.CaptureRef}
	if r.Voter != nil {
		data.Voter = &verification.VoterDetails{Name: r.Voter.Name, Email: r.Voter.Email}
	}
	if r.Identity != nil {
		data.Identity = &verification.IdentityRecord{
			FullName:       strings.TrimSpace(r.Identity.FullName),
			FirstName:      strings.TrimSpace(r.Identity.FirstName),
			LastName:       strings.TrimSpace(r.Identity.LastName),
			BirthDate:      strings.TrimSpace(r.Identity.BirthDate),
			DocumentNumber: strings.TrimSpace(r.Identity.DocumentNumber),
			Nationality:    strings.TrimSpace(r.Identity.Nationality),
		}
	}
	return data
}
