package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	ballotdomainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	ballothttp "ballotbox/contexts/election/ballot-service/transport/http"
)

func (s *Server) registerBallotRoutes() {
	s.mux.HandleFunc("GET /api/ballot/v1/elections/{election_id}/status", s.handleElectionStatus)
	s.mux.HandleFunc("POST /api/ballot/v1/elections/{election_id}/tokens", s.handleIssueToken)
	s.mux.HandleFunc("POST /api/ballot/v1/elections/{election_id}/votes", s.handleSubmitVote)
}

func (s *Server) handleElectionStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.ElectionStatusHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	voterID := strings.TrimSpace(r.Header.Get("X-Voter-Id"))
	if voterID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required", false)
		return
	}
	resp, err := s.ballot.Handler.IssueTokenHandler(r.Context(), voterID, r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	voterID := strings.TrimSpace(r.Header.Get("X-Voter-Id"))
	if voterID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required", false)
		return
	}

	var req ballothttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", false)
		return
	}

	resp, err := s.ballot.Handler.SubmitVoteHandler(r.Context(), voterID, r.PathValue("election_id"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	kind := strings.ToLower(ballotdomainerrors.Kind(err))
	switch {
	case errors.Is(err, ballotdomainerrors.ErrInvalidBallotInput):
		writeBallotError(w, http.StatusBadRequest, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrVoterNotFound):
		writeBallotError(w, http.StatusNotFound, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrVoterInactive):
		writeBallotError(w, http.StatusForbidden, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrElectionNotOpen),
		errors.Is(err, ballotdomainerrors.ErrAlreadyVoted),
		errors.Is(err, ballotdomainerrors.ErrTokenAlreadyUsed):
		writeBallotError(w, http.StatusConflict, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrTokenExpired):
		writeBallotError(w, http.StatusGone, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrInvalidVoteToken),
		errors.Is(err, ballotdomainerrors.ErrTokenNonceMismatch),
		errors.Is(err, ballotdomainerrors.ErrInvalidCandidate):
		writeBallotError(w, http.StatusUnprocessableEntity, kind, err.Error(), false)
	case errors.Is(err, ballotdomainerrors.ErrStorageConflict):
		w.Header().Set("Retry-After", "1")
		writeBallotError(w, http.StatusServiceUnavailable, kind, err.Error(), true)
	case errors.Is(err, ballotdomainerrors.ErrStorageTransactionUnsupported):
		writeBallotError(w, http.StatusServiceUnavailable, kind, err.Error(), false)
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error", false)
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string, retryable bool) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	})
}
