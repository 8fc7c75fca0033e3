package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"ballotbox/contexts/election/ballot-service/application/commands"
	"ballotbox/contexts/election/ballot-service/application/queries"
	"ballotbox/contexts/election/ballot-service/domain/entities"
	httptransport "ballotbox/contexts/election/ballot-service/transport/http"
)

type Handler struct {
	Gate    queries.ElectionGate
	Turnout queries.TurnoutQuery
	Tokens  commands.TokenUseCase
	Votes   commands.VoteUseCase
	Logger  *slog.Logger
}

// ElectionStatusHandler godoc
// @Summary Election gate status
// @Description Reports whether the election currently accepts tokens and votes, and the projected number of votes recorded.
// @Tags ballot-service
// @Produce json
// @Param election_id path string true "Election id"
// @Success 200 {object} httptransport.ElectionStatusResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/ballot/v1/elections/{election_id}/status [get]
func (h Handler) ElectionStatusHandler(ctx context.Context, electionID string) (httptransport.ElectionStatusResponse, error) {
	open, err := h.Gate.IsOpen(ctx, electionID)
	if err != nil {
		return httptransport.ElectionStatusResponse{}, err
	}
	recorded, err := h.Turnout.VotesRecorded(ctx, electionID)
	if err != nil {
		return httptransport.ElectionStatusResponse{}, err
	}
	return httptransport.ElectionStatusResponse{
		ElectionID:    electionID,
		Open:          open,
		VotesRecorded: recorded,
	}, nil
}

// IssueTokenHandler godoc
// @Summary Issue a voting token
// @Description Issues a single-use token for an authenticated, eligible voter.
// @Tags ballot-service
// @Produce json
// @Param X-Voter-Id header string true "Authenticated voter id"
// @Param election_id path string true "Election id"
// @Success 201 {object} httptransport.IssueTokenResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/ballot/v1/elections/{election_id}/tokens [post]
func (h Handler) IssueTokenHandler(ctx context.Context, voterID string, electionID string) (httptransport.IssueTokenResponse, error) {
	issued, err := h.Tokens.IssueToken(ctx, commands.IssueTokenCommand{
		ElectionID: electionID,
		Voter:      entities.VoterContext{VoterID: voterID},
	})
	if err != nil {
		return httptransport.IssueTokenResponse{}, err
	}
	return httptransport.IssueTokenResponse{
		TokenID:   issued.TokenID,
		Nonce:     issued.Nonce,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// SubmitVoteHandler godoc
// @Summary Submit a vote
// @Description Redeems a token for one candidate. The stored vote carries no voter or token reference.
// @Tags ballot-service
// @Accept json
// @Produce json
// @Param X-Voter-Id header string true "Authenticated voter id"
// @Param election_id path string true "Election id"
// @Param request body httptransport.SubmitVoteRequest true "Ballot"
// @Success 201 {object} httptransport.SubmitVoteResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 410 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /api/ballot/v1/elections/{election_id}/votes [post]
func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	voterID string,
	electionID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Votes.SubmitVote(ctx, commands.SubmitVoteCommand{
		Voter:       entities.VoterContext{VoterID: voterID},
		TokenID:     req.TokenID,
		ElectionID:  electionID,
		CandidateID: req.CandidateID,
		Nonce:       req.Nonce,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		ElectionID:  result.ElectionID,
		CandidateID: result.CandidateID,
		Recorded:    true,
	}, nil
}
