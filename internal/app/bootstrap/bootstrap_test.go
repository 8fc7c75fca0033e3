package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	ballotservice "ballotbox/contexts/election/ballot-service"
	"ballotbox/contexts/election/ballot-service/ports"
	accessguard "ballotbox/contexts/identity-access/access-guard"
	"ballotbox/internal/platform/messaging"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		" 9090": ":9090",
		":7000": ":7000",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- runEvery(ctx, 5*time.Millisecond, func(context.Context) error {
			if calls.Add(1) == 3 {
				cancel()
			}
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runEvery did not stop")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 calls, got %d", calls.Load())
	}
}

func TestRunEveryReturnsJobError(t *testing.T) {
	boom := errors.New("boom")
	err := runEvery(context.Background(), time.Millisecond, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestBuildWorkerRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	if _, err := BuildWorker(); err == nil {
		t.Fatalf("expected error without POSTGRES_DSN")
	}
}

func TestWorkerAppRelaysOutboxToBus(t *testing.T) {
	kafka, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("new kafka failed: %v", err)
	}
	ballot := ballotservice.NewInMemoryModule(nil)
	ballot.OutboxRelay.Publisher = kafka
	ballot.TurnoutProjector.Subscriber = kafka

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan ports.EventEnvelope, 1)
	if err := kafka.Subscribe(ctx, "ballot.vote_recorded", "test-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := ballot.Store.WithinBallotTx(ctx, func(tx ports.BallotTx) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:    "evt-1",
			EventType:  "ballot.vote_recorded",
			OccurredAt: time.Now().UTC(),
			Data:       json.RawMessage(`{"election_id":"el-1"}`),
		})
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	app := &WorkerApp{
		ballot:       ballot,
		access:       accessguard.NewInMemoryModule(nil),
		pollInterval: 10 * time.Millisecond,
		logger:       slog.Default(),
	}
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Run(runCtx) }()

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("expected evt-1, got %s", event.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for relayed event")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		turnout, err := ballot.Store.GetTurnout(ctx, "el-1")
		if err != nil {
			t.Fatalf("get turnout failed: %v", err)
		}
		if turnout.VotesRecorded == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("turnout not projected, got %d", turnout.VotesRecorded)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stop()
	if err := <-done; err != nil {
		t.Fatalf("worker returned error: %v", err)
	}
}

func TestWorkerAppKeepsRunningWhenBusHasNoConsumer(t *testing.T) {
	kafka, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("new kafka failed: %v", err)
	}
	ballot := ballotservice.NewInMemoryModule(nil)
	ballot.OutboxRelay.Publisher = kafka

	ctx := context.Background()
	if err := ballot.Store.WithinBallotTx(ctx, func(tx ports.BallotTx) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1", EventType: "ballot.vote_recorded", OccurredAt: time.Now().UTC()})
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}

	app := &WorkerApp{
		ballot:       ballot,
		access:       accessguard.NewInMemoryModule(nil),
		pollInterval: 10 * time.Millisecond,
		logger:       slog.Default(),
	}
	runCtx, stop := context.WithTimeout(ctx, 100*time.Millisecond)
	defer stop()
	if err := app.Run(runCtx); err != nil {
		t.Fatalf("worker returned error: %v", err)
	}

	pending, err := ballot.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected undelivered row to stay pending, got %d", len(pending))
	}
}
