package db

import (
	"context"
	"errors"
	"testing"
)

type stepRecorder struct {
	steps    *[]string
	name     string
	verifyErr error
}

func (s stepRecorder) Migrate(context.Context) error {
	*s.steps = append(*s.steps, "migrate:"+s.name)
	return nil
}

func (s stepRecorder) VerifyTransactions(context.Context) error {
	*s.steps = append(*s.steps, "verify:"+s.name)
	return s.verifyErr
}

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect(""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestPrepareOrder(t *testing.T) {
	var steps []string
	ballot := stepRecorder{steps: &steps, name: "ballot"}
	access := stepRecorder{steps: &steps, name: "access"}

	if err := Prepare(context.Background(), true, []Migrator{ballot, access}, []TransactionVerifier{ballot}); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	want := []string{"migrate:ballot", "migrate:access", "verify:ballot"}
	if len(steps) != len(want) {
		t.Fatalf("expected %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, steps)
		}
	}
}

func TestPrepareSkipsMigrationAndFailsVerification(t *testing.T) {
	var steps []string
	unsupported := errors.New("unsupported")
	ballot := stepRecorder{steps: &steps, name: "ballot", verifyErr: unsupported}

	err := Prepare(context.Background(), false, []Migrator{ballot}, []TransactionVerifier{ballot})
	if !errors.Is(err, unsupported) {
		t.Fatalf("expected verification error, got %v", err)
	}
	if len(steps) != 1 || steps[0] != "verify:ballot" {
		t.Fatalf("expected only the verification to run, got %v", steps)
	}
}

func TestCloseNilSafe(t *testing.T) {
	var p *Postgres
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil close on nil postgres, got %v", err)
	}
}
