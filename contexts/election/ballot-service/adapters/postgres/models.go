package postgresadapter

import (
	"time"

	"ballotbox/contexts/election/ballot-service/domain/entities"
)

type voterModel struct {
	VoterID  string `gorm:"column:voter_id;primaryKey"`
	Status   string `gorm:"column:status;not null"`
	HasVoted bool   `gorm:"column:has_voted;not null;default:false"`
}

func (voterModel) TableName() string { return "voters" }

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		VoterID:  m.VoterID,
		Status:   entities.VoterStatus(m.Status),
		HasVoted: m.HasVoted,
	}
}

type electionModel struct {
	ElectionID string `gorm:"column:election_id;primaryKey"`
	Status     string `gorm:"column:status;not null"`
}

func (electionModel) TableName() string { return "elections" }

func (m electionModel) toEntity() entities.Election {
	return entities.Election{
		ElectionID: m.ElectionID,
		Status:     entities.ElectionStatus(m.Status),
	}
}

type candidateModel struct {
	ElectionID  string `gorm:"column:election_id;primaryKey"`
	CandidateID string `gorm:"column:candidate_id;primaryKey"`
	Active      bool   `gorm:"column:active;not null;default:true"`
}

func (candidateModel) TableName() string { return "candidates" }

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		ElectionID:  m.ElectionID,
		CandidateID: m.CandidateID,
		Active:      m.Active,
	}
}

type votingTokenModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ElectionID string    `gorm:"column:election_id;not null;index"`
	Spent      bool      `gorm:"column:spent;not null;default:false"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
	Nonce      string    `gorm:"column:nonce;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (votingTokenModel) TableName() string { return "voting_tokens" }

func (m votingTokenModel) toEntity() entities.VotingToken {
	return entities.VotingToken{
		TokenID:    m.ID,
		ElectionID: m.ElectionID,
		Spent:      m.Spent,
		ExpiresAt:  m.ExpiresAt.UTC(),
		Nonce:      m.Nonce,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func votingTokenModelFromEntity(token entities.VotingToken) votingTokenModel {
	return votingTokenModel{
		ID:         token.TokenID,
		ElectionID: token.ElectionID,
		Spent:      token.Spent,
		ExpiresAt:  token.ExpiresAt.UTC(),
		Nonce:      token.Nonce,
		CreatedAt:  token.CreatedAt.UTC(),
	}
}

// voteModel has no voter or token column.
type voteModel struct {
	ServerSignature string    `gorm:"column:server_signature;primaryKey"`
	ElectionID      string    `gorm:"column:election_id;not null;index"`
	CandidateID     string    `gorm:"column:candidate_id;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
}

func (voteModel) TableName() string { return "votes" }

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		ServerSignature: vote.ServerSignature,
		ElectionID:      vote.ElectionID,
		CandidateID:     vote.CandidateID,
		CreatedAt:       vote.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key;not null"`
	Payload      []byte     `gorm:"column:payload;type:jsonb;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "ballot_outbox" }

type turnoutModel struct {
	ElectionID    string    `gorm:"column:election_id;primaryKey"`
	VotesRecorded int64     `gorm:"column:votes_recorded;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (turnoutModel) TableName() string { return "election_turnout" }

func (m turnoutModel) toEntity() entities.Turnout {
	return entities.Turnout{
		ElectionID:    m.ElectionID,
		VotesRecorded: m.VotesRecorded,
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

// processedEventModel dedupes consumed events for at-least-once delivery.
type processedEventModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

func (processedEventModel) TableName() string { return "ballot_processed_events" }
