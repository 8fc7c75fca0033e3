package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/application/queries"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"
)

const (
	DefaultTokenTTL = 5 * time.Minute
	nonceBytes      = 32
)

// IssueTokenCommand requests a fresh voting token for one election.
type IssueTokenCommand struct {
	ElectionID string
	Voter      entities.VoterContext
}

// TokenUseCase issues voting tokens. It never records which voter asked for
// which token, so redemption re-checks eligibility on its own.
type TokenUseCase struct {
	Gate     queries.ElectionGate
	Voters   ports.VoterReader
	Tokens   ports.TokenRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Secrets  ports.SecretGenerator
	TokenTTL time.Duration
	Logger   *slog.Logger
}

// IssueToken checks, in order, that the election is open, the voter exists
// and is active, and the voter has not voted. The first failure wins.
func (uc TokenUseCase) IssueToken(ctx context.Context, cmd IssueTokenCommand) (entities.IssuedToken, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	voterID := strings.TrimSpace(cmd.Voter.VoterID)
	if electionID == "" || voterID == "" {
		logger.Warn("token issue validation failed",
			"event", "ballot_token_issue_validation_failed",
			"module", "election/ballot-service",
			"layer", "application",
			"election_id", electionID,
		)
		return entities.IssuedToken{}, domainerrors.ErrInvalidBallotInput
	}

	open, err := uc.Gate.IsOpen(ctx, electionID)
	if err != nil {
		return entities.IssuedToken{}, err
	}
	if !open {
		uc.logRejected(logger, electionID, voterID, domainerrors.ErrElectionNotOpen)
		return entities.IssuedToken{}, domainerrors.ErrElectionNotOpen
	}

	voter, err := uc.Voters.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoterNotFound) {
			uc.logRejected(logger, electionID, voterID, err)
		}
		return entities.IssuedToken{}, err
	}
	if !voter.IsActive() {
		uc.logRejected(logger, electionID, voterID, domainerrors.ErrVoterInactive)
		return entities.IssuedToken{}, domainerrors.ErrVoterInactive
	}
	if voter.HasVoted {
		uc.logRejected(logger, electionID, voterID, domainerrors.ErrAlreadyVoted)
		return entities.IssuedToken{}, domainerrors.ErrAlreadyVoted
	}

	tokenID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.IssuedToken{}, err
	}
	nonce, err := uc.Secrets.NewSecret(ctx, nonceBytes)
	if err != nil {
		return entities.IssuedToken{}, err
	}
	now := uc.now()
	token := entities.VotingToken{
		TokenID:    tokenID,
		ElectionID: electionID,
		Spent:      false,
		ExpiresAt:  now.Add(uc.resolveTokenTTL()),
		Nonce:      nonce,
		CreatedAt:  now,
	}
	if err := uc.Tokens.CreateToken(ctx, token); err != nil {
		return entities.IssuedToken{}, err
	}

	// This line carries voter_id, so nothing that identifies the token row
	// (token_id, nonce, expires_at) may be added to it.
	logger.Info("voting token issued",
		"event", "ballot_token_issued",
		"module", "election/ballot-service",
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
	)
	return entities.IssuedToken{
		TokenID:   token.TokenID,
		Nonce:     token.Nonce,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func (uc TokenUseCase) logRejected(logger *slog.Logger, electionID string, voterID string, reason error) {
	logger.Warn("voting token issue rejected",
		"event", "ballot_token_issue_rejected",
		"module", "election/ballot-service",
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
		"kind", domainerrors.Kind(reason),
	)
}

func (uc TokenUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc TokenUseCase) resolveTokenTTL() time.Duration {
	if uc.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return uc.TokenTTL
}
