package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, locks and adapters return
// these (optionally wrapped) so the compliance service can decide whether a
// failure is fatal for the run, fatal for one vendor, or just a skip.
//
//   - ErrNotFound: record does not exist (e.g. no active reviewer)
//   - ErrConflict: conditional update lost to a concurrent writer
//   - ErrLocked: another holder owns the lock
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrLocked      = errors.New("locked")
	ErrUnavailable = errors.New("unavailable")
)
