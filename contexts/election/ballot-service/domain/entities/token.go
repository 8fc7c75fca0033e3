package entities

import "time"

// VotingToken authorizes exactly one redemption within one election.
// It deliberately has no voter reference.
type VotingToken struct {
	TokenID    string
	ElectionID string
	Spent      bool
	ExpiresAt  time.Time
	Nonce      string
	CreatedAt  time.Time
}

func (t VotingToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

func (t VotingToken) RedeemableAt(now time.Time) bool {
	return !t.Spent && !t.ExpiredAt(now)
}

type IssuedToken struct {
	TokenID   string
	Nonce     string
	ExpiresAt time.Time
}
