package clock

import "time"

// Clock is the source of "now" for fee and due-date computation.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant. Used by tests and by the CLI's --at flag.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f).UTC()
}
