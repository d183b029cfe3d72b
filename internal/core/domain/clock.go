package domain

import "time"

// Clock supplies the current instant. Durations are always computed from it so
// tests can pin time.
type Clock interface {
	Now() time.Time
}

// Precision is the finest resolution every store keeps (Mongo dates are
// milliseconds). Instants are truncated to it before durations are derived.
const Precision = time.Millisecond

// SystemClock reads the wall clock in UTC at Precision.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(Precision) }
