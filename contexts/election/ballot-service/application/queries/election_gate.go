package queries

import (
	"context"
	"log/slog"
	"strings"

	application "ballotbox/contexts/election/ballot-service/application"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	"ballotbox/contexts/election/ballot-service/ports"
)

// ElectionGate answers whether an election currently accepts votes.
//
// An election without a stored record is treated as open unless
// RequireRegistration is set.
type ElectionGate struct {
	Elections           ports.ElectionReader
	RequireRegistration bool
	Logger              *slog.Logger
}

func (g ElectionGate) IsOpen(ctx context.Context, electionID string) (bool, error) {
	electionID = strings.TrimSpace(electionID)
	election, found, err := g.Elections.GetElection(ctx, electionID)
	if err != nil {
		application.ResolveLogger(g.Logger).Error("election gate lookup failed",
			"event", "ballot_election_gate_lookup_failed",
			"module", "election/ballot-service",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return false, err
	}
	if !found {
		return !g.RequireRegistration, nil
	}
	return election.Status == entities.ElectionStatusOpen, nil
}
