package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and upstream adapters
// return these (optionally wrapped) so services can translate them into
// domain errors:
//   - ErrNotFound: key, ballot or profile entry does not exist
//   - ErrUnavailable: backing store or remote service cannot be reached
//   - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
