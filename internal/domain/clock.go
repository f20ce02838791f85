package domain

import "time"

// DayKeyLayout is the calendar key format used for plan seeding and
// read-side day aggregation.
const DayKeyLayout = "2006-01-02"

// Clock abstracts wall time so plan determinism and timer behaviour are
// testable without real waiting.
type Clock interface {
	Now() time.Time
	TodayKey() string
}

// DayKeyOf returns the local-calendar key for the given instant.
func DayKeyOf(t time.Time) string {
	return t.Format(DayKeyLayout)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) TodayKey() string { return DayKeyOf(time.Now()) }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
