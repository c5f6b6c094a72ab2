package compliance

import "time"

// ExpiryState is the classification of one document against the run time.
type ExpiryState string

const (
	ExpiryOK           ExpiryState = "OK"
	ExpiryExpiringSoon ExpiryState = "EXPIRING_SOON"
	ExpiryExpired      ExpiryState = "EXPIRED"
)

// Classify places expiry relative to now. A document expiring exactly at now
// is not yet expired and not "soon" either; a zero expiry (unparsed or
// malformed upstream) is treated as OK.
func Classify(expiry, now time.Time, window time.Duration) ExpiryState {
	if expiry.IsZero() {
		return ExpiryOK
	}
	if expiry.Before(now) {
		return ExpiryExpired
	}
	if remaining := expiry.Sub(now); remaining > 0 && remaining <= window {
		return ExpiryExpiringSoon
	}
	return ExpiryOK
}
