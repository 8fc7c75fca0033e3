package entities

type ElectionStatus string

const (
	ElectionStatusOpen      ElectionStatus = "open"
	ElectionStatusClosed    ElectionStatus = "closed"
	ElectionStatusFinalized ElectionStatus = "finalized"
)

type Election struct {
	ElectionID string
	Status     ElectionStatus
}

type Candidate struct {
	ElectionID  string
	CandidateID string
	Active      bool
}
