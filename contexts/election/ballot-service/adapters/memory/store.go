package memory

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is an in-process ballot store. WithinBallotTx holds the store lock for
// the whole unit of work and stages writes in a tx overlay, so concurrent
// redemptions observe serializable behavior and aborted units leave no trace.
type Store struct {
	mu sync.RWMutex

	voters     map[string]entities.Voter
	elections  map[string]entities.Election
	candidates map[string]entities.Candidate
	tokens     map[string]entities.VotingToken
	votes      []entities.Vote
	outbox     map[string]outboxRecord
	turnout    map[string]entities.Turnout
	processed  map[string]struct{}

	clockMu sync.RWMutex
	offset  time.Duration
}

func NewStore() *Store {
	return &Store{
		voters:     make(map[string]entities.Voter),
		elections:  make(map[string]entities.Election),
		candidates: make(map[string]entities.Candidate),
		tokens:     make(map[string]entities.VotingToken),
		outbox:     make(map[string]outboxRecord),
		turnout:    make(map[string]entities.Turnout),
		processed:  make(map[string]struct{}),
	}
}

func (s *Store) SetVoter(voter entities.Voter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter.VoterID = strings.TrimSpace(voter.VoterID)
	s.voters[voter.VoterID] = voter
}

func (s *Store) DeleteVoter(voterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.voters, strings.TrimSpace(voterID))
}

func (s *Store) SetElection(election entities.Election) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election.ElectionID = strings.TrimSpace(election.ElectionID)
	s.elections[election.ElectionID] = election
}

func (s *Store) SetCandidate(candidate entities.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate.ElectionID = strings.TrimSpace(candidate.ElectionID)
	candidate.CandidateID = strings.TrimSpace(candidate.CandidateID)
	s.candidates[candidateKey(candidate.ElectionID, candidate.CandidateID)] = candidate
}

// Advance moves the store clock forward; used to exercise token expiry.
func (s *Store) Advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.offset += d
}

func (s *Store) Votes() []entities.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Vote(nil), s.votes...)
}

func (s *Store) Token(tokenID string) (entities.VotingToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[strings.TrimSpace(tokenID)]
	return token, ok
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	return election, ok, nil
}

func (s *Store) GetVoter(_ context.Context, voterID string) (entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[strings.TrimSpace(voterID)]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

func (s *Store) CreateToken(_ context.Context, token entities.VotingToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.TokenID = strings.TrimSpace(token.TokenID)
	if _, exists := s.tokens[token.TokenID]; exists {
		return domainerrors.ErrStorageConflict
	}
	s.tokens[token.TokenID] = token
	return nil
}

func (s *Store) DeleteExpiredTokens(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 500
	}
	deleted := 0
	for id, token := range s.tokens {
		if deleted >= limit {
			break
		}
		if token.ExpiredAt(now) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) WithinBallotTx(ctx context.Context, fn func(tx ports.BallotTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ballotTx{
		store:  s,
		tokens: make(map[string]entities.VotingToken),
		voters: make(map[string]entities.Voter),
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		items = append(items, record.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrStorageConflict
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

func (s *Store) ApplyVoteRecorded(_ context.Context, eventID string, electionID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID = strings.TrimSpace(eventID)
	if _, seen := s.processed[eventID]; seen {
		return false, nil
	}
	s.processed[eventID] = struct{}{}
	electionID = strings.TrimSpace(electionID)
	current := s.turnout[electionID]
	current.ElectionID = electionID
	current.VotesRecorded++
	current.UpdatedAt = at.UTC()
	s.turnout[electionID] = current
	return true, nil
}

func (s *Store) GetTurnout(_ context.Context, electionID string) (entities.Turnout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	if current, ok := s.turnout[electionID]; ok {
		return current, nil
	}
	return entities.Turnout{ElectionID: electionID}, nil
}

func (s *Store) Now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return time.Now().UTC().Add(s.offset)
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) NewSecret(_ context.Context, size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ballotTx reads through its own staged writes first, then the committed
// store state. The store lock is already held by WithinBallotTx.
type ballotTx struct {
	store  *Store
	tokens map[string]entities.VotingToken
	voters map[string]entities.Voter
	votes  []entities.Vote
	outbox []ports.OutboxMessage
}

func (tx *ballotTx) GetVoter(_ context.Context, voterID string) (entities.Voter, error) {
	voterID = strings.TrimSpace(voterID)
	if voter, ok := tx.voters[voterID]; ok {
		return voter, nil
	}
	voter, ok := tx.store.voters[voterID]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

func (tx *ballotTx) GetToken(_ context.Context, tokenID string, electionID string) (entities.VotingToken, error) {
	token, ok := tx.token(strings.TrimSpace(tokenID))
	if !ok || token.ElectionID != strings.TrimSpace(electionID) {
		return entities.VotingToken{}, domainerrors.ErrInvalidVoteToken
	}
	return token, nil
}

func (tx *ballotTx) GetCandidate(_ context.Context, electionID string, candidateID string) (entities.Candidate, error) {
	candidate, ok := tx.store.candidates[candidateKey(strings.TrimSpace(electionID), strings.TrimSpace(candidateID))]
	if !ok {
		return entities.Candidate{}, domainerrors.ErrInvalidCandidate
	}
	return candidate, nil
}

func (tx *ballotTx) SpendToken(_ context.Context, tokenID string) (bool, error) {
	tokenID = strings.TrimSpace(tokenID)
	token, ok := tx.token(tokenID)
	if !ok || token.Spent {
		return false, nil
	}
	token.Spent = true
	tx.tokens[tokenID] = token
	return true, nil
}

func (tx *ballotTx) InsertVote(_ context.Context, vote entities.Vote) error {
	for _, existing := range tx.store.votes {
		if existing.ServerSignature == vote.ServerSignature {
			return domainerrors.ErrStorageConflict
		}
	}
	tx.votes = append(tx.votes, vote)
	return nil
}

func (tx *ballotTx) MarkVoterVoted(ctx context.Context, voterID string) (bool, error) {
	voter, err := tx.GetVoter(ctx, voterID)
	if err != nil {
		return false, nil
	}
	if voter.HasVoted {
		return false, nil
	}
	voter.HasVoted = true
	tx.voters[voter.VoterID] = voter
	return true, nil
}

func (tx *ballotTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := tx.store.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrStorageConflict
		}
		return nil
	}
	tx.outbox = append(tx.outbox, ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func (tx *ballotTx) token(tokenID string) (entities.VotingToken, bool) {
	if token, ok := tx.tokens[tokenID]; ok {
		return token, true
	}
	token, ok := tx.store.tokens[tokenID]
	return token, ok
}

func (tx *ballotTx) commit() {
	for id, token := range tx.tokens {
		tx.store.tokens[id] = token
	}
	for id, voter := range tx.voters {
		tx.store.voters[id] = voter
	}
	tx.store.votes = append(tx.store.votes, tx.votes...)
	for _, message := range tx.outbox {
		tx.store.outbox[message.OutboxID] = outboxRecord{message: message}
	}
}

func candidateKey(electionID string, candidateID string) string {
	return electionID + "/" + candidateID
}

var _ ports.ElectionReader = (*Store)(nil)
var _ ports.VoterReader = (*Store)(nil)
var _ ports.TokenRepository = (*Store)(nil)
var _ ports.BallotUnitOfWork = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.TurnoutStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.SecretGenerator = (*Store)(nil)
