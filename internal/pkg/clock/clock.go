package clock

import "time"

// Clock supplies the current time. The OTP state machine and the token
// issuer read time through it so tests can pin or advance the clock.
type Clock interface {
	Now() time.Time
}

// System is the real clock, in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }
