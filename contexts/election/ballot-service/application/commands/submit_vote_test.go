package commands_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ballotbox/contexts/election/ballot-service/adapters/memory"
	"ballotbox/contexts/election/ballot-service/application/commands"
	"ballotbox/contexts/election/ballot-service/application/queries"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	store  *memory.Store
	tokens commands.TokenUseCase
	votes  commands.VoteUseCase
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetVoter(entities.Voter{VoterID: "voter-1", Status: entities.VoterStatusActive})
	store.SetCandidate(entities.Candidate{ElectionID: "e1", CandidateID: "c1", Active: true})
	store.SetCandidate(entities.Candidate{ElectionID: "e1", CandidateID: "c-retired", Active: false})
	return fixture{
		store: store,
		tokens: commands.TokenUseCase{
			Gate:    queries.ElectionGate{Elections: store},
			Voters:  store,
			Tokens:  store,
			Clock:   store,
			IDGen:   store,
			Secrets: store,
		},
		votes: commands.VoteUseCase{
			Ballots: store,
			Clock:   store,
			IDGen:   store,
			Secrets: store,
		},
	}
}

func (f fixture) issue(t *testing.T, voterID string) entities.IssuedToken {
	t.Helper()
	issued, err := f.tokens.IssueToken(context.Background(), commands.IssueTokenCommand{
		ElectionID: "e1",
		Voter:      entities.VoterContext{VoterID: voterID},
	})
	require.NoError(t, err)
	return issued
}

func (f fixture) submit(voterID string, token entities.IssuedToken, candidateID string) (entities.SubmitResult, error) {
	return f.votes.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		Voter:       entities.VoterContext{VoterID: voterID},
		TokenID:     token.TokenID,
		ElectionID:  "e1",
		CandidateID: candidateID,
		Nonce:       token.Nonce,
	})
}

func TestSubmitVoteRecordsAnonymousVote(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	result, err := f.submit("voter-1", token, "c1")
	require.NoError(t, err)
	assert.Equal(t, entities.SubmitResult{ElectionID: "e1", CandidateID: "c1"}, result)

	votes := f.store.Votes()
	require.Len(t, votes, 1)
	assert.Equal(t, "e1", votes[0].ElectionID)
	assert.Equal(t, "c1", votes[0].CandidateID)
	assert.NotEmpty(t, votes[0].ServerSignature)

	stored, ok := f.store.Token(token.TokenID)
	require.True(t, ok)
	assert.True(t, stored.Spent)

	voter, err := f.store.GetVoter(context.Background(), "voter-1")
	require.NoError(t, err)
	assert.True(t, voter.HasVoted)

	pending, err := f.store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ballot.vote_recorded", pending[0].EventType)
	assert.NotContains(t, string(pending[0].Payload), "voter-1")
	assert.NotContains(t, string(pending[0].Payload), token.TokenID)
}

func TestSubmitVoteSecondRedemptionFails(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	_, err := f.submit("voter-1", token, "c1")
	require.NoError(t, err)

	_, err = f.submit("voter-1", token, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)
	assert.Len(t, f.store.Votes(), 1)
}

func TestSubmitVoteSpentTokenForAnotherVoter(t *testing.T) {
	f := newFixture(t)
	f.store.SetVoter(entities.Voter{VoterID: "voter-2", Status: entities.VoterStatusActive})
	token := f.issue(t, "voter-1")

	_, err := f.submit("voter-1", token, "c1")
	require.NoError(t, err)

	_, err = f.submit("voter-2", token, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrTokenAlreadyUsed)

	voter, err := f.store.GetVoter(context.Background(), "voter-2")
	require.NoError(t, err)
	assert.False(t, voter.HasVoted)
}

func TestSubmitVoteConcurrentRedemptionExactlyOnce(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	const attempts = 16
	var successes atomic.Int32
	var group errgroup.Group
	for i := 0; i < attempts; i++ {
		group.Go(func() error {
			_, err := f.submit("voter-1", token, "c1")
			if err == nil {
				successes.Add(1)
				return nil
			}
			if errors.Is(err, domainerrors.ErrAlreadyVoted) || errors.Is(err, domainerrors.ErrTokenAlreadyUsed) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, group.Wait())
	assert.Equal(t, int32(1), successes.Load())
	assert.Len(t, f.store.Votes(), 1)
}

func TestSubmitVoteExpiredToken(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")
	f.store.Advance(6 * time.Minute)

	_, err := f.submit("voter-1", token, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
	assert.Empty(t, f.store.Votes())
}

func TestSubmitVoteInvalidCandidateLeavesTokenUnspent(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	for _, candidateID := range []string{"c-unknown", "c-retired"} {
		_, err := f.submit("voter-1", token, candidateID)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCandidate, candidateID)
	}

	stored, ok := f.store.Token(token.TokenID)
	require.True(t, ok)
	assert.False(t, stored.Spent)
	voter, err := f.store.GetVoter(context.Background(), "voter-1")
	require.NoError(t, err)
	assert.False(t, voter.HasVoted)
	assert.Empty(t, f.store.Votes())

	_, err = f.submit("voter-1", token, "c1")
	assert.NoError(t, err)
}

func TestSubmitVoteNonceBinding(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	wrong := token
	wrong.Nonce = "not-the-nonce"
	_, err := f.submit("voter-1", wrong, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNonceMismatch)

	absent := token
	absent.Nonce = ""
	_, err = f.submit("voter-1", absent, "c1")
	assert.NoError(t, err)
}

func TestSubmitVoteUnknownOrForeignToken(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	_, err := f.votes.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		Voter:       entities.VoterContext{VoterID: "voter-1"},
		TokenID:     token.TokenID,
		ElectionID:  "e2",
		CandidateID: "c1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidVoteToken)

	_, err = f.submit("voter-1", entities.IssuedToken{TokenID: "missing"}, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidVoteToken)
}

func TestSubmitVoteVoterChecks(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")

	_, err := f.submit("voter-404", token, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrVoterNotFound)

	f.store.SetVoter(entities.Voter{VoterID: "voter-1", Status: entities.VoterStatusBlocked})
	_, err = f.submit("voter-1", token, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrVoterInactive)

	stored, _ := f.store.Token(token.TokenID)
	assert.False(t, stored.Spent)
}

func TestSubmitVoteRejectsBlankInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.votes.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		Voter:      entities.VoterContext{VoterID: "voter-1"},
		ElectionID: "e1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidBallotInput)
}

func TestSubmitVoteWithoutTransactionalStore(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t, "voter-1")
	uc := f.votes
	uc.Ballots = nil

	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		Voter:       entities.VoterContext{VoterID: "voter-1"},
		TokenID:     token.TokenID,
		ElectionID:  "e1",
		CandidateID: "c1",
	})
	assert.ErrorIs(t, err, domainerrors.ErrStorageTransactionUnsupported)
	stored, _ := f.store.Token(token.TokenID)
	assert.False(t, stored.Spent)
}

// racingTx simulates losing the conditional writes to a concurrent unit.
type racingTx struct {
	ports.BallotTx
	spendMatches bool
	markMatches  bool
	voterAfter   *entities.Voter
	reads        int
}

func (tx *racingTx) SpendToken(ctx context.Context, tokenID string) (bool, error) {
	if !tx.spendMatches {
		return false, nil
	}
	return tx.BallotTx.SpendToken(ctx, tokenID)
}

func (tx *racingTx) MarkVoterVoted(context.Context, string) (bool, error) {
	return tx.markMatches, nil
}

func (tx *racingTx) GetVoter(ctx context.Context, voterID string) (entities.Voter, error) {
	tx.reads++
	if tx.reads > 1 {
		if tx.voterAfter == nil {
			return entities.Voter{}, domainerrors.ErrVoterNotFound
		}
		return *tx.voterAfter, nil
	}
	return tx.BallotTx.GetVoter(ctx, voterID)
}

type racingUnit struct {
	store *memory.Store
	tx    *racingTx
}

func (u racingUnit) WithinBallotTx(ctx context.Context, fn func(tx ports.BallotTx) error) error {
	return u.store.WithinBallotTx(ctx, func(inner ports.BallotTx) error {
		u.tx.BallotTx = inner
		return fn(u.tx)
	})
}

func TestSubmitVoteLostRaces(t *testing.T) {
	voted := entities.Voter{VoterID: "voter-1", Status: entities.VoterStatusActive, HasVoted: true}
	cases := []struct {
		name string
		tx   *racingTx
		want error
	}{
		{name: "token spent concurrently", tx: &racingTx{spendMatches: false, markMatches: true}, want: domainerrors.ErrTokenAlreadyUsed},
		{name: "voter marked concurrently", tx: &racingTx{spendMatches: true, markMatches: false, voterAfter: &voted}, want: domainerrors.ErrAlreadyVoted},
		{name: "voter removed concurrently", tx: &racingTx{spendMatches: true, markMatches: false}, want: domainerrors.ErrVoterNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			token := f.issue(t, "voter-1")
			uc := f.votes
			uc.Ballots = racingUnit{store: f.store, tx: tc.tx}

			_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
				Voter:       entities.VoterContext{VoterID: "voter-1"},
				TokenID:     token.TokenID,
				ElectionID:  "e1",
				CandidateID: "c1",
				Nonce:       token.Nonce,
			})
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.store.Votes())
			stored, _ := f.store.Token(token.TokenID)
			assert.False(t, stored.Spent)
		})
	}
}
