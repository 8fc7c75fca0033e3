package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckImportApplicationLayer(t *testing.T) {
	prefix := "ballotbox/contexts/election/ballot-service"
	cases := []struct {
		importPath string
		broken     int
	}{
		{"context", 0},
		{prefix + "/ports", 0},
		{"ballotbox/contracts/gen/events/v1", 0},
		{"golang.org/x/crypto/bcrypt", 0},
		{prefix + "/adapters/postgres", 2},
		{"ballotbox/internal/platform/db", 2},
		{"gorm.io/gorm", 1},
		{"ballotbox/contexts/identity-access/access-guard/ports", 2},
	}
	for _, tc := range cases {
		got := checkImport("application", tc.importPath, prefix)
		if len(got) != tc.broken {
			t.Fatalf("%s: expected %d broken rules, got %d (%v)", tc.importPath, tc.broken, len(got), got)
		}
	}
}

func TestCheckImportDomainAndPorts(t *testing.T) {
	prefix := "ballotbox/contexts/identity-access/access-guard"
	if got := checkImport("domain", prefix+"/domain/entities", prefix); len(got) != 0 {
		t.Fatalf("expected domain-to-domain import to pass, got %v", got)
	}
	if got := checkImport("domain", prefix+"/ports", prefix); len(got) != 1 {
		t.Fatalf("expected domain-to-ports import to break one rule, got %v", got)
	}
	if got := checkImport("ports", "ballotbox/contracts/gen/events/v1", prefix); len(got) != 0 {
		t.Fatalf("expected ports-to-contracts import to pass, got %v", got)
	}
	if got := checkImport("adapters", "gorm.io/gorm", prefix); len(got) != 0 {
		t.Fatalf("expected adapters to import freely, got %v", got)
	}
}

func TestCollectViolationsWalksContexts(t *testing.T) {
	root := filepath.Join(t.TempDir(), "contexts")
	dir := filepath.Join(root, "election", "ballot-service", "domain", "entities")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	src := "package entities\n\nimport _ \"gorm.io/gorm\"\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	violations := collectViolations(root)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0].File != "contexts/election/ballot-service/domain/entities/bad.go" || violations[0].Line != 3 {
		t.Fatalf("unexpected violation %+v", violations[0])
	}
}

func TestIsStdlib(t *testing.T) {
	if !isStdlib("net/http") {
		t.Fatalf("expected net/http to be stdlib")
	}
	if isStdlib("ballotbox/internal/platform/db") {
		t.Fatalf("expected module path to be non-stdlib")
	}
	if isStdlib("github.com/google/uuid") {
		t.Fatalf("expected github path to be non-stdlib")
	}
}
