package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/ports"
)

const (
	topicVoteRecorded = "ballot.vote_recorded"
	defaultRelayBatch = 100
)

var (
	ErrNoPublisher     = errors.New("ballot outbox relay has no publisher")
	ErrUnroutableEvent = errors.New("ballot outbox row cannot be routed")
)

// relayedTopics are the only event types this relay puts on the bus.
var relayedTopics = map[string]struct{}{
	topicVoteRecorded: {},
}

// RelayResult accounts for one relay cycle. Remaining counts rows of the
// fetched batch still pending when the cycle ended.
type RelayResult struct {
	Published int
	Remaining int
}

// OutboxRelay forwards committed ballot events to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	_, err := r.Relay(ctx)
	return err
}

// Relay publishes one batch in creation order. A row is marked published
// only once the bus reports delivery; the cycle stops at the first failure
// and the next cycle resumes from that row.
func (r OutboxRelay) Relay(ctx context.Context) (RelayResult, error) {
	logger := application.ResolveLogger(r.Logger)
	if r.Publisher == nil {
		return RelayResult{}, ErrNoPublisher
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatch
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		r.logFailure(logger, "ballot_outbox_list_failed", "", err)
		return RelayResult{}, err
	}
	result := RelayResult{Remaining: len(pending)}

	for _, row := range pending {
		event, topic, err := routeRow(row)
		if err != nil {
			r.logFailure(logger, "ballot_outbox_route_failed", row.OutboxID, err)
			return result, err
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			r.logFailure(logger, "ballot_outbox_publish_failed", row.OutboxID, err,
				"topic", topic,
				"remaining", result.Remaining,
			)
			return result, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			r.logFailure(logger, "ballot_outbox_mark_published_failed", row.OutboxID, err)
			return result, err
		}
		result.Published++
		result.Remaining--
	}

	if result.Published > 0 {
		logger.Info("ballot outbox relay cycle completed",
			"event", "ballot_outbox_relay_completed",
			"module", "election/ballot-service",
			"layer", "worker",
			"published_count", result.Published,
		)
	}
	return result, nil
}

// routeRow decodes the stored envelope and checks it still describes its
// row before it goes on the bus.
func routeRow(row ports.OutboxMessage) (ports.EventEnvelope, string, error) {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return ports.EventEnvelope{}, "", fmt.Errorf("%w: %v", ErrUnroutableEvent, err)
	}
	if event.EventID == "" {
		event.EventID = row.OutboxID
	}
	if event.EventID != row.OutboxID {
		return ports.EventEnvelope{}, "", fmt.Errorf("%w: envelope id does not match row", ErrUnroutableEvent)
	}
	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if _, ok := relayedTopics[topic]; !ok {
		return ports.EventEnvelope{}, "", fmt.Errorf("%w: event type %q", ErrUnroutableEvent, topic)
	}
	return event, topic, nil
}

func (r OutboxRelay) logFailure(logger *slog.Logger, event string, outboxID string, err error, attrs ...any) {
	fields := []any{
		"event", event,
		"module", "election/ballot-service",
		"layer", "worker",
		"error", err.Error(),
	}
	if outboxID != "" {
		fields = append(fields, "outbox_id", outboxID)
	}
	logger.Error("ballot outbox relay failed", append(fields, attrs...)...)
}

func (r OutboxRelay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
