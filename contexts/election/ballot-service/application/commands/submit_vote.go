package commands

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"
)

const signatureBytes = 32

// SubmitVoteCommand redeems one token for one candidate. An empty Nonce means
// the caller did not supply one and the nonce binding is skipped.
type SubmitVoteCommand struct {
	Voter       entities.VoterContext
	TokenID     string
	ElectionID  string
	CandidateID string
	Nonce       string
}

// VoteUseCase coordinates redemption. All validation and all mutations run in
// a single unit of work; nothing is retried here.
type VoteUseCase struct {
	Ballots ports.BallotUnitOfWork
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Secrets ports.SecretGenerator
	Logger  *slog.Logger
}

// SubmitVote validates the voter, the token, the optional nonce and the
// candidate, then spends the token, appends an anonymous vote and marks the
// voter as having voted. Either all of it commits or none of it does.
func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (entities.SubmitResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.Voter.VoterID)
	tokenID := strings.TrimSpace(cmd.TokenID)
	electionID := strings.TrimSpace(cmd.ElectionID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	nonce := strings.TrimSpace(cmd.Nonce)

	if voterID == "" || tokenID == "" || electionID == "" || candidateID == "" {
		logger.Warn("vote submit validation failed",
			"event", "ballot_vote_submit_validation_failed",
			"module", "election/ballot-service",
			"layer", "application",
			"election_id", electionID,
		)
		return entities.SubmitResult{}, domainerrors.ErrInvalidBallotInput
	}
	if uc.Ballots == nil {
		logger.Error("vote submit has no transactional store",
			"event", "ballot_vote_submit_tx_unsupported",
			"module", "election/ballot-service",
			"layer", "application",
		)
		return entities.SubmitResult{}, domainerrors.ErrStorageTransactionUnsupported
	}

	now := uc.now()
	signature, err := uc.Secrets.NewSecret(ctx, signatureBytes)
	if err != nil {
		return entities.SubmitResult{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.SubmitResult{}, err
	}

	err = uc.Ballots.WithinBallotTx(ctx, func(tx ports.BallotTx) error {
		voter, err := tx.GetVoter(ctx, voterID)
		if err != nil {
			return err
		}
		if !voter.IsActive() {
			return domainerrors.ErrVoterInactive
		}
		if voter.HasVoted {
			return domainerrors.ErrAlreadyVoted
		}

		token, err := tx.GetToken(ctx, tokenID, electionID)
		if err != nil {
			return err
		}
		if token.Spent {
			return domainerrors.ErrTokenAlreadyUsed
		}
		if token.ExpiredAt(now) {
			return domainerrors.ErrTokenExpired
		}
		if nonce != "" && subtle.ConstantTimeCompare([]byte(nonce), []byte(token.Nonce)) != 1 {
			return domainerrors.ErrTokenNonceMismatch
		}

		candidate, err := tx.GetCandidate(ctx, electionID, candidateID)
		if err != nil {
			return err
		}
		if !candidate.Active {
			return domainerrors.ErrInvalidCandidate
		}

		// The read above may be stale by now; only the conditional write
		// decides who redeems the token.
		spent, err := tx.SpendToken(ctx, tokenID)
		if err != nil {
			return err
		}
		if !spent {
			return domainerrors.ErrTokenAlreadyUsed
		}

		if err := tx.InsertVote(ctx, entities.Vote{
			ElectionID:      electionID,
			CandidateID:     candidateID,
			CreatedAt:       now,
			ServerSignature: signature,
		}); err != nil {
			return err
		}

		marked, err := tx.MarkVoterVoted(ctx, voterID)
		if err != nil {
			return err
		}
		if !marked {
			return resolveUnmarkedVoter(ctx, tx, voterID)
		}

		envelope, err := newBallotEnvelope(eventID, eventVoteRecorded, electionID, now, map[string]any{
			"election_id":  electionID,
			"candidate_id": candidateID,
			"occurred_at":  now.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	if err != nil {
		uc.logFailure(logger, electionID, voterID, err)
		return entities.SubmitResult{}, err
	}

	logger.Info("vote recorded",
		"event", "ballot_vote_recorded",
		"module", "election/ballot-service",
		"layer", "application",
		"election_id", electionID,
	)
	return entities.SubmitResult{
		ElectionID:  electionID,
		CandidateID: candidateID,
	}, nil
}

// resolveUnmarkedVoter explains why the has_voted update matched nothing.
func resolveUnmarkedVoter(ctx context.Context, tx ports.BallotTx, voterID string) error {
	voter, err := tx.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoterNotFound) {
			return domainerrors.ErrVoterNotFound
		}
		return err
	}
	if voter.HasVoted {
		return domainerrors.ErrAlreadyVoted
	}
	return domainerrors.ErrVoterNotFound
}

func (uc VoteUseCase) logFailure(logger *slog.Logger, electionID string, voterID string, err error) {
	kind := domainerrors.Kind(err)
	if kind == "INTERNAL" || domainerrors.Retryable(err) {
		logger.Error("vote submit failed",
			"event", "ballot_vote_submit_failed",
			"module", "election/ballot-service",
			"layer", "application",
			"election_id", electionID,
			"kind", kind,
			"error", err.Error(),
		)
		return
	}
	logger.Warn("vote submit rejected",
		"event", "ballot_vote_submit_rejected",
		"module", "election/ballot-service",
		"layer", "application",
		"election_id", electionID,
		"voter_id", voterID,
		"kind", kind,
	)
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
