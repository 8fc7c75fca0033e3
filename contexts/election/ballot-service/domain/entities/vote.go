package entities

import "time"

// Vote is append-only. Adding a field here that identifies a voter or a token
// breaks unlinkability; TestVoteCarriesNoIdentity guards the field set.
type Vote struct {
	ElectionID      string
	CandidateID     string
	CreatedAt       time.Time
	ServerSignature string
}

type SubmitResult struct {
	ElectionID  string
	CandidateID string
}
