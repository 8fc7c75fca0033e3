package entities

import "time"

// Turnout counts recorded votes for one election. It carries no candidate
// breakdown; tallies are computed outside this service.
type Turnout struct {
	ElectionID    string
	VotesRecorded int64
	UpdatedAt     time.Time
}
