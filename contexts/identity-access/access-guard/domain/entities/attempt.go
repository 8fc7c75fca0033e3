package entities

import "time"

// AttemptWindow counts attempts for one subject until WindowEndsAt.
type AttemptWindow struct {
	SubjectKey   string
	Count        int
	WindowEndsAt time.Time
}

// ActiveAt reports whether the window has not lapsed at now.
func (w AttemptWindow) ActiveAt(now time.Time) bool {
	return w.WindowEndsAt.After(now)
}

// Next returns the window after one more attempt at now: incremented while
// active, reset to a fresh window of length window otherwise.
func (w AttemptWindow) Next(now time.Time, window time.Duration) AttemptWindow {
	if w.ActiveAt(now) {
		w.Count++
		return w
	}
	w.Count = 1
	w.WindowEndsAt = now.Add(window)
	return w
}
