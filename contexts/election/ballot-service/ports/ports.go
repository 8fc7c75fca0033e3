package ports

import (
	"context"
	"time"

	"ballotbox/contexts/election/ballot-service/domain/entities"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// ElectionReader backs the election gate.
type ElectionReader interface {
	GetElection(ctx context.Context, electionID string) (entities.Election, bool, error)
}

// VoterReader returns domain errors ErrVoterNotFound when absent.
type VoterReader interface {
	GetVoter(ctx context.Context, voterID string) (entities.Voter, error)
}

// TokenRepository persists freshly issued tokens and sweeps expired ones.
type TokenRepository interface {
	CreateToken(ctx context.Context, token entities.VotingToken) error
	DeleteExpiredTokens(ctx context.Context, now time.Time, limit int) (int, error)
}

// BallotTx is the view of the store inside one redemption unit of work.
// Every read observes the same snapshot as the writes that follow it.
type BallotTx interface {
	GetVoter(ctx context.Context, voterID string) (entities.Voter, error)
	// GetToken returns ErrInvalidVoteToken unless the token exists for the
	// given election.
	GetToken(ctx context.Context, tokenID string, electionID string) (entities.VotingToken, error)
	// GetCandidate returns ErrInvalidCandidate when the candidate is unknown
	// to the election.
	GetCandidate(ctx context.Context, electionID string, candidateID string) (entities.Candidate, error)
	// SpendToken sets spent=true only where spent=false and reports whether
	// a row matched.
	SpendToken(ctx context.Context, tokenID string) (bool, error)
	InsertVote(ctx context.Context, vote entities.Vote) error
	// MarkVoterVoted sets has_voted=true only where has_voted=false and
	// reports whether a row matched.
	MarkVoterVoted(ctx context.Context, voterID string) (bool, error)
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// BallotUnitOfWork runs fn as one all-or-nothing transaction. Any error
// returned by fn discards every write made through tx.
type BallotUnitOfWork interface {
	WithinBallotTx(ctx context.Context, fn func(tx BallotTx) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// SecretGenerator returns hex-encoded random values of size bytes.
type SecretGenerator interface {
	NewSecret(ctx context.Context, size int) (string, error)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// TurnoutStore is the read model fed by ballot.vote_recorded events.
type TurnoutStore interface {
	// ApplyVoteRecorded counts one vote for the election unless eventID was
	// already applied, and reports whether it counted.
	ApplyVoteRecorded(ctx context.Context, eventID string, electionID string, at time.Time) (bool, error)
	// GetTurnout returns a zero count for elections with no applied events.
	GetTurnout(ctx context.Context, electionID string) (entities.Turnout, error)
}
