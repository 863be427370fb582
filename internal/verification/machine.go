package verification

import (
	"fmt"
	"slices"

	"safeballot/pkg/platform/sentinel"
)

// Event drives the reducer.
type Event int

const (
	EventComplete Event = iota
	EventBack
)

func (e Event) String() string {
	if e == EventBack {
		return "back"
	}
	return "complete"
}

var (
	registrationSteps = []State{StateIdentity, StateScan, StateConfirm, StateVerified}
	loginSteps        = []State{StateScan, StateVerified}
)

// Steps returns the ordered steps of v. Confirm is not a login step.
func Steps(v Variant) []State {
	if v == VariantLogin {
		return slices.Clone(loginSteps)
	}
	return slices.Clone(registrationSteps)
}

// Initial is the first step of v.
func Initial(v Variant) State {
	return Steps(v)[0]
}

// Next is the pure transition function. Complete advances one step and
// turns Verified into Ready; Back returns one step and exits from the
// first. A state that is not a step of v is rejected.
func Next(v Variant, s State, e Event) (State, error) {
	steps := Steps(v)
	i := slices.Index(steps, s)
	if i < 0 {
		return s, fmt.Errorf("state %q is not part of the %s flow: %w", s, v, sentinel.ErrInvalidState)
	}

	switch e {
	case EventComplete:
		if i == len(steps)-1 {
			return StateReady, nil
		}
		return steps[i+1], nil
	case EventBack:
		if i == 0 {
			return StateExited, nil
		}
		return steps[i-1], nil
	}
	return s, fmt.Errorf("unknown event %d: %w", e, sentinel.ErrInvalidState)
}
