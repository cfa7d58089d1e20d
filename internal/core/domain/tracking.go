package domain

import "github.com/oklog/ulid/v2"

const trackingPrefix = "TRK-"

// NewTrackingNumber returns a tracking number whose leading characters encode
// the creation time and whose tail is random, e.g. TRK-01J9Z3...
func NewTrackingNumber() string {
	return trackingPrefix + ulid.Make().String()
}
