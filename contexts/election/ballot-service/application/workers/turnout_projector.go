package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/ports"
)

const defaultTurnoutCG = "ballot-turnout-cg"

var ErrMalformedVoteEvent = errors.New("vote recorded event is malformed")

// TurnoutProjector keeps per-election vote counts from ballot.vote_recorded.
// Only election_id is read from the payload.
type TurnoutProjector struct {
	Subscriber    ports.EventSubscriber
	Turnout       ports.TurnoutStore
	Clock         ports.Clock
	ConsumerGroup string
	Logger        *slog.Logger
}

// Start subscribes the projector. Without a subscriber or store it stays
// off and returns nil.
func (p TurnoutProjector) Start(ctx context.Context) error {
	logger := application.ResolveLogger(p.Logger)
	if p.Subscriber == nil || p.Turnout == nil {
		logger.Info("turnout projector disabled",
			"event", "ballot_turnout_projector_disabled",
			"module", "election/ballot-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(p.ConsumerGroup)
	if group == "" {
		group = defaultTurnoutCG
	}
	if err := p.Subscriber.Subscribe(ctx, topicVoteRecorded, group, p.Handle); err != nil {
		logger.Error("turnout projector subscribe failed",
			"event", "ballot_turnout_projector_subscribe_failed",
			"module", "election/ballot-service",
			"layer", "worker",
			"topic", topicVoteRecorded,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("turnout projector subscribed",
		"event", "ballot_turnout_projector_started",
		"module", "election/ballot-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle applies one event. Replays of an applied event id are no-ops.
func (p TurnoutProjector) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(p.Logger)
	var payload struct {
		ElectionID string `json:"election_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return errors.Join(ErrMalformedVoteEvent, err)
	}
	electionID := strings.TrimSpace(payload.ElectionID)
	if strings.TrimSpace(event.EventID) == "" || electionID == "" {
		return ErrMalformedVoteEvent
	}

	applied, err := p.Turnout.ApplyVoteRecorded(ctx, event.EventID, electionID, p.now())
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("vote recorded replay skipped",
			"event", "ballot_turnout_replay_skipped",
			"module", "election/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	logger.Debug("vote recorded applied to turnout",
		"event", "ballot_turnout_applied",
		"module", "election/ballot-service",
		"layer", "worker",
		"election_id", electionID,
	)
	return nil
}

func (p TurnoutProjector) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
