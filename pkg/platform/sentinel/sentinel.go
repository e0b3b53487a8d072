package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a unique field is already taken
//   - ErrStale: a conditional update found a different current value
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStale       = errors.New("stale value")
	ErrUnavailable = errors.New("unavailable")
)
