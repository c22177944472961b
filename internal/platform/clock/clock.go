package clock

import "time"

// Clock abstracts time for deterministic tests and strict UTC usage.
// After backs the capture window deadline.
type Clock interface {
	NowUTC() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemUTC is the production clock.
type SystemUTC struct{}

func (SystemUTC) NowUTC() time.Time {
	return time.Now().UTC()
}

func (SystemUTC) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
