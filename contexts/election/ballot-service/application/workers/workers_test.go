package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotbox/contexts/election/ballot-service/adapters/memory"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	"ballotbox/contexts/election/ballot-service/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.events)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, eventID string, occurredAt time.Time) {
	t.Helper()
	err := store.WithinBallotTx(context.Background(), func(tx ports.BallotTx) error {
		return tx.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:      eventID,
			EventType:    "ballot.vote_recorded",
			OccurredAt:   occurredAt,
			PartitionKey: "e1",
			Data:         []byte(`{"election_id":"e1","candidate_id":"c1"}`),
		})
	})
	require.NoError(t, err)
}

func TestOutboxRelayPublishesInOrderAndMarks(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-2", base.Add(time.Second))
	appendEvent(t, store, "evt-1", base)

	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	require.NoError(t, relay.RunOnce(context.Background()))

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "evt-1", publisher.events[0].EventID)
	assert.Equal(t, "evt-2", publisher.events[1].EventID)
	assert.Equal(t, "ballot.vote_recorded", publisher.topics[0])

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-1", base)
	appendEvent(t, store, "evt-2", base.Add(time.Second))

	relay := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{failAt: 2}, Clock: store}
	require.Error(t, relay.RunOnce(context.Background()))

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-2", pending[0].OutboxID)
}

func TestTokenSweeperDeletesOnlyExpired(t *testing.T) {
	store := memory.NewStore()
	now := store.Now()
	require.NoError(t, store.CreateToken(context.Background(), entities.VotingToken{TokenID: "old", ElectionID: "e1", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.CreateToken(context.Background(), entities.VotingToken{TokenID: "fresh", ElectionID: "e1", ExpiresAt: now.Add(time.Hour)}))

	deleted, err := TokenSweeper{Tokens: store, Clock: store}.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, oldExists := store.Token("old")
	_, freshExists := store.Token("fresh")
	assert.False(t, oldExists)
	assert.True(t, freshExists)
}

type stubOutbox struct {
	rows   []ports.OutboxMessage
	marked []string
}

func (o *stubOutbox) ListPendingOutbox(_ context.Context, _ int) ([]ports.OutboxMessage, error) {
	return o.rows, nil
}

func (o *stubOutbox) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	o.marked = append(o.marked, outboxID)
	return nil
}

type stubSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(_ context.Context, topic string, consumerGroup string, handler func(context.Context, ports.EventEnvelope) error) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

func TestOutboxRelayRequiresPublisher(t *testing.T) {
	store := memory.NewStore()
	appendEvent(t, store, "evt-1", time.Now().UTC())

	_, err := OutboxRelay{Outbox: store, Clock: store}.Relay(context.Background())
	require.ErrorIs(t, err, ErrNoPublisher)

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOutboxRelayReportsPublishedAndRemaining(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-1", base)
	appendEvent(t, store, "evt-2", base.Add(time.Second))
	appendEvent(t, store, "evt-3", base.Add(2*time.Second))

	result, err := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{failAt: 3}, Clock: store}.Relay(context.Background())
	require.Error(t, err)
	assert.Equal(t, RelayResult{Published: 2, Remaining: 1}, result)

	result, err = OutboxRelay{Outbox: store, Publisher: &recordingPublisher{}, Clock: store}.Relay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RelayResult{Published: 1, Remaining: 0}, result)
}

func TestOutboxRelayRefusesUnroutableRows(t *testing.T) {
	cases := map[string]ports.OutboxMessage{
		"unknown topic": {
			OutboxID:  "evt-1",
			EventType: "ballot.tallied",
			Payload:   []byte(`{"event_id":"evt-1","event_type":"ballot.tallied"}`),
		},
		"id mismatch": {
			OutboxID:  "evt-1",
			EventType: "ballot.vote_recorded",
			Payload:   []byte(`{"event_id":"evt-9","event_type":"ballot.vote_recorded"}`),
		},
		"corrupt payload": {
			OutboxID:  "evt-1",
			EventType: "ballot.vote_recorded",
			Payload:   []byte(`{`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			outbox := &stubOutbox{rows: []ports.OutboxMessage{row}}
			publisher := &recordingPublisher{}

			result, err := OutboxRelay{Outbox: outbox, Publisher: publisher}.Relay(context.Background())
			require.ErrorIs(t, err, ErrUnroutableEvent)
			assert.Equal(t, RelayResult{Published: 0, Remaining: 1}, result)
			assert.Empty(t, publisher.events)
			assert.Empty(t, outbox.marked)
		})
	}
}

func TestOutboxRelayFillsMissingEnvelopeID(t *testing.T) {
	outbox := &stubOutbox{rows: []ports.OutboxMessage{{
		OutboxID:  "evt-1",
		EventType: "ballot.vote_recorded",
		Payload:   []byte(`{"data":{"election_id":"e1"}}`),
	}}}
	publisher := &recordingPublisher{}

	require.NoError(t, OutboxRelay{Outbox: outbox, Publisher: publisher}.RunOnce(context.Background()))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "evt-1", publisher.events[0].EventID)
	assert.Equal(t, "ballot.vote_recorded", publisher.topics[0])
	assert.Equal(t, []string{"evt-1"}, outbox.marked)
}

func TestTurnoutProjectorCountsEachEventOnce(t *testing.T) {
	store := memory.NewStore()
	projector := TurnoutProjector{Turnout: store, Clock: store}
	event := ports.EventEnvelope{
		EventID:   "evt-1",
		EventType: "ballot.vote_recorded",
		Data:      []byte(`{"election_id":"e1","candidate_id":"c1"}`),
	}

	require.NoError(t, projector.Handle(context.Background(), event))
	require.NoError(t, projector.Handle(context.Background(), event))
	event.EventID = "evt-2"
	require.NoError(t, projector.Handle(context.Background(), event))

	turnout, err := store.GetTurnout(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), turnout.VotesRecorded)
}

func TestTurnoutProjectorRejectsMalformedEvents(t *testing.T) {
	store := memory.NewStore()
	projector := TurnoutProjector{Turnout: store, Clock: store}

	cases := map[string]ports.EventEnvelope{
		"corrupt data":     {EventID: "evt-1", Data: []byte(`{`)},
		"missing election": {EventID: "evt-2", Data: []byte(`{"candidate_id":"c1"}`)},
		"missing event id": {Data: []byte(`{"election_id":"e1"}`)},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, projector.Handle(context.Background(), event), ErrMalformedVoteEvent)
		})
	}

	turnout, err := store.GetTurnout(context.Background(), "e1")
	require.NoError(t, err)
	assert.Zero(t, turnout.VotesRecorded)
}

func TestTurnoutProjectorStartSubscribesToVoteRecorded(t *testing.T) {
	store := memory.NewStore()
	subscriber := &stubSubscriber{}
	projector := TurnoutProjector{Subscriber: subscriber, Turnout: store, Clock: store}

	require.NoError(t, projector.Start(context.Background()))
	assert.Equal(t, "ballot.vote_recorded", subscriber.topic)
	assert.Equal(t, "ballot-turnout-cg", subscriber.group)
	require.NotNil(t, subscriber.handler)

	require.NoError(t, subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID: "evt-1",
		Data:    []byte(`{"election_id":"e1"}`),
	}))
	turnout, err := store.GetTurnout(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), turnout.VotesRecorded)
}

func TestTurnoutProjectorStartWithoutSubscriberIsOff(t *testing.T) {
	require.NoError(t, TurnoutProjector{Turnout: memory.NewStore()}.Start(context.Background()))
}
