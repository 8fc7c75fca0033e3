package entities

type VoterStatus string

const (
	VoterStatusPending VoterStatus = "pending"
	VoterStatusActive  VoterStatus = "active"
	VoterStatusBlocked VoterStatus = "blocked"
)

// Voter is owned by registration. This module only flips HasVoted.
type Voter struct {
	VoterID  string
	Status   VoterStatus
	HasVoted bool
}

func (v Voter) IsActive() bool {
	return v.Status == VoterStatusActive
}

// VoterContext is the already-authenticated caller identity.
type VoterContext struct {
	VoterID string
}
