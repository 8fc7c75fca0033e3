package queries

import (
	"context"
	"strings"

	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"
)

// TurnoutQuery reads the projected vote count. The projection lags commits
// by one relay cycle.
type TurnoutQuery struct {
	Turnout ports.TurnoutStore
}

func (q TurnoutQuery) VotesRecorded(ctx context.Context, electionID string) (int64, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return 0, domainerrors.ErrInvalidBallotInput
	}
	if q.Turnout == nil {
		return 0, nil
	}
	turnout, err := q.Turnout.GetTurnout(ctx, electionID)
	if err != nil {
		return 0, err
	}
	return turnout.VotesRecorded, nil
}
