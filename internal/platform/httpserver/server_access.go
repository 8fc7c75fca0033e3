package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	accessdomainerrors "ballotbox/contexts/identity-access/access-guard/domain/errors"
	accesshttp "ballotbox/contexts/identity-access/access-guard/transport/http"
)

func (s *Server) registerAccessRoutes() {
	s.mux.HandleFunc("POST /api/access/v1/codes", s.handleRequestCode)
	s.mux.HandleFunc("POST /api/access/v1/codes/verify", s.handleVerifyCode)
	s.mux.HandleFunc("POST /api/access/v1/login/failures", s.handleLoginFailure)
	s.mux.HandleFunc("GET /api/access/v1/login/status", s.handleLoginStatus)
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req accesshttp.RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.RequestCodeHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req accesshttp.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.VerifyCodeHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoginFailure(w http.ResponseWriter, r *http.Request) {
	var req accesshttp.LoginFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAccessError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.access.Handler.RecordLoginFailureHandler(r.Context(), req)
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoginStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.access.Handler.LoginStatusHandler(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeAccessDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeAccessDomainError(w http.ResponseWriter, err error) {
	kind := strings.ToLower(accessdomainerrors.Kind(err))
	switch {
	case errors.Is(err, accessdomainerrors.ErrInvalidSubject):
		writeAccessError(w, http.StatusBadRequest, kind, err.Error())
	case errors.Is(err, accessdomainerrors.ErrTooManyAttempts):
		writeAccessError(w, http.StatusTooManyRequests, kind, err.Error())
	case errors.Is(err, accessdomainerrors.ErrLoginLocked):
		writeAccessError(w, http.StatusLocked, kind, err.Error())
	case errors.Is(err, accessdomainerrors.ErrCodeInvalid):
		writeAccessError(w, http.StatusUnauthorized, kind, err.Error())
	case errors.Is(err, accessdomainerrors.ErrCodeExpired):
		writeAccessError(w, http.StatusGone, kind, err.Error())
	default:
		writeAccessError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeAccessError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, accesshttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
