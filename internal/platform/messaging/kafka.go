package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const subscriberBuffer = 128

var (
	// ErrNoSubscribers means the event reached nobody; callers keep it
	// pending.
	ErrNoSubscribers = errors.New("topic has no subscribers")
	// ErrDeliveryIncomplete means at least one subscriber inbox was full.
	// Subscribers that did receive the event see it again on retry.
	ErrDeliveryIncomplete = errors.New("event not delivered to every subscriber")
)

// handler consumes one envelope. A returned error is logged and the envelope
// is not redelivered.
type handler = func(context.Context, contractsv1.Envelope) error

// Kafka is the event bus the outbox relays publish to. Delivery is
// in-process and best effort per subscriber: a full subscriber buffer drops
// the event for that subscriber only. Brokers are recorded for the
// connection log and not dialed.
type Kafka struct {
	brokers []string
	logger  *slog.Logger

	mu     sync.RWMutex
	topics map[string][]*subscription
}

type subscription struct {
	group string
	inbox chan contractsv1.Envelope
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	k := &Kafka{
		brokers: append([]string(nil), brokers...),
		logger:  logger,
		topics:  make(map[string][]*subscription),
	}
	k.log(slog.LevelInfo, "event bus ready", "kafka_bus_ready",
		"brokers", strings.Join(k.brokers, ","),
	)
	return k, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if strings.TrimSpace(topic) == "" {
		return errors.New("topic is required")
	}
	k.mu.RLock()
	subs := append([]*subscription(nil), k.topics[topic]...)
	k.mu.RUnlock()

	if len(subs) == 0 {
		k.log(slog.LevelWarn, "event has no subscribers", "kafka_publish_unrouted",
			"topic", topic,
			"event_id", event.EventID,
		)
		return ErrNoSubscribers
	}

	delivered := 0
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub.inbox <- event:
			delivered++
		default:
			k.log(slog.LevelWarn, "dropping event for slow subscriber", "kafka_publish_drop",
				"topic", topic,
				"consumer_group", sub.group,
				"event_id", event.EventID,
			)
		}
	}

	k.log(slog.LevelDebug, "event published", "kafka_publish",
		"topic", topic,
		"event_id", event.EventID,
		"delivered", delivered,
	)
	if delivered < len(subs) {
		return ErrDeliveryIncomplete
	}
	return nil
}

// Subscribe starts a consumer goroutine for topic that lives until ctx is
// done.
func (k *Kafka) Subscribe(ctx context.Context, topic string, consumerGroup string, fn handler) error {
	if fn == nil {
		return errors.New("handler is required")
	}
	sub := &subscription{
		group: consumerGroup,
		inbox: make(chan contractsv1.Envelope, subscriberBuffer),
	}
	k.mu.Lock()
	k.topics[topic] = append(k.topics[topic], sub)
	k.mu.Unlock()

	go k.consume(ctx, topic, sub, fn)
	return nil
}

func (k *Kafka) consume(ctx context.Context, topic string, sub *subscription, fn handler) {
	defer k.unsubscribe(topic, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.inbox:
			if err := fn(ctx, event); err != nil {
				k.log(slog.LevelError, "consumer handler failed", "kafka_consume_failed",
					"topic", topic,
					"consumer_group", sub.group,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}
}

func (k *Kafka) unsubscribe(topic string, target *subscription) {
	k.mu.Lock()
	defer k.mu.Unlock()
	kept := k.topics[topic][:0:0]
	for _, sub := range k.topics[topic] {
		if sub != target {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(k.topics, topic)
		return
	}
	k.topics[topic] = kept
}

func (k *Kafka) subscriberCount(topic string) int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.topics[topic])
}

func (k *Kafka) log(level slog.Level, msg string, event string, attrs ...any) {
	fields := append([]any{
		"event", event,
		"module", "internal/platform/messaging",
		"layer", "platform",
	}, attrs...)
	k.logger.Log(context.Background(), level, msg, fields...)
}
