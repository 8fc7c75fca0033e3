package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"ballotbox/contexts/election/ballot-service/application/commands"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenDefaults(t *testing.T) {
	f := newFixture(t)
	before := f.store.Now()

	issued := f.issue(t, "voter-1")
	assert.NotEmpty(t, issued.TokenID)
	assert.Len(t, issued.Nonce, 64)
	assert.WithinDuration(t, before.Add(commands.DefaultTokenTTL), issued.ExpiresAt, time.Second)

	stored, ok := f.store.Token(issued.TokenID)
	require.True(t, ok)
	assert.False(t, stored.Spent)
	assert.Equal(t, "e1", stored.ElectionID)
	assert.Equal(t, issued.Nonce, stored.Nonce)
}

func TestIssueTokenMultipleOutstanding(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, "voter-1")
	second := f.issue(t, "voter-1")
	assert.NotEqual(t, first.TokenID, second.TokenID)

	_, err := f.submit("voter-1", second, "c1")
	require.NoError(t, err)
	_, err = f.submit("voter-1", first, "c1")
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)
}

func TestIssueTokenCheckOrder(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f fixture)
		voter string
		want  error
	}{
		{
			name: "closed election wins over unknown voter",
			setup: func(f fixture) {
				f.store.SetElection(entities.Election{ElectionID: "e1", Status: entities.ElectionStatusClosed})
			},
			voter: "voter-404",
			want:  domainerrors.ErrElectionNotOpen,
		},
		{
			name:  "unknown voter",
			setup: func(fixture) {},
			voter: "voter-404",
			want:  domainerrors.ErrVoterNotFound,
		},
		{
			name: "inactive wins over already voted",
			setup: func(f fixture) {
				f.store.SetVoter(entities.Voter{VoterID: "voter-1", Status: entities.VoterStatusPending, HasVoted: true})
			},
			voter: "voter-1",
			want:  domainerrors.ErrVoterInactive,
		},
		{
			name: "already voted",
			setup: func(f fixture) {
				f.store.SetVoter(entities.Voter{VoterID: "voter-1", Status: entities.VoterStatusActive, HasVoted: true})
			},
			voter: "voter-1",
			want:  domainerrors.ErrAlreadyVoted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.setup(f)
			_, err := f.tokens.IssueToken(context.Background(), commands.IssueTokenCommand{
				ElectionID: "e1",
				Voter:      entities.VoterContext{VoterID: tc.voter},
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestIssueTokenRejectsBlankInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.tokens.IssueToken(context.Background(), commands.IssueTokenCommand{ElectionID: " "})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidBallotInput)
}

func TestIssueTokenCustomTTL(t *testing.T) {
	f := newFixture(t)
	f.tokens.TokenTTL = 30 * time.Second
	before := f.store.Now()
	issued := f.issue(t, "voter-1")
	assert.WithinDuration(t, before.Add(30*time.Second), issued.ExpiresAt, time.Second)
}

func TestBallotLogsNeverLinkVoterToTokenOrChoice(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := newFixture(t)
	f.tokens.Logger = logger
	f.votes.Logger = logger

	issued := f.issue(t, "voter-1")
	_, err := f.submit("voter-1", issued, "c1")
	require.NoError(t, err)
	_, err = f.submit("voter-1", issued, "c1")
	require.Error(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal(line, &record))
		assert.NotContains(t, string(line), issued.TokenID)
		assert.NotContains(t, string(line), issued.Nonce)
		assert.NotContains(t, record, "token_id")
		assert.NotContains(t, record, "expires_at")
		if _, hasVoter := record["voter_id"]; hasVoter {
			assert.NotContains(t, record, "candidate_id", "line links voter to choice: %s", line)
		}
	}
}
