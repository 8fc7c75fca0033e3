package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"ballotbox/contexts/identity-access/access-guard/application/commands"
	httptransport "ballotbox/contexts/identity-access/access-guard/transport/http"
)

type Handler struct {
	Login  commands.LoginGuard
	Codes  commands.CodeService
	Logger *slog.Logger
}

// RequestCodeHandler godoc
// @Summary Request a one-time code
// @Tags access-guard
// @Accept json
// @Produce json
// @Param request body httptransport.RequestCodeRequest true "Destination phone"
// @Success 202 {object} httptransport.RequestCodeResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 429 {object} httptransport.ErrorResponse
// @Router /api/access/v1/codes [post]
func (h Handler) RequestCodeHandler(ctx context.Context, req httptransport.RequestCodeRequest) (httptransport.RequestCodeResponse, error) {
	issued, err := h.Codes.RequestCode(ctx, req.Phone)
	if err != nil {
		return httptransport.RequestCodeResponse{}, err
	}
	return httptransport.RequestCodeResponse{
		Sent:      true,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// VerifyCodeHandler godoc
// @Summary Verify a one-time code
// @Tags access-guard
// @Accept json
// @Produce json
// @Param request body httptransport.VerifyCodeRequest true "Phone and code"
// @Success 200 {object} httptransport.VerifyCodeResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 410 {object} httptransport.ErrorResponse
// @Failure 429 {object} httptransport.ErrorResponse
// @Router /api/access/v1/codes/verify [post]
func (h Handler) VerifyCodeHandler(ctx context.Context, req httptransport.VerifyCodeRequest) (httptransport.VerifyCodeResponse, error) {
	if err := h.Codes.VerifyCode(ctx, req.Phone, req.Code); err != nil {
		return httptransport.VerifyCodeResponse{}, err
	}
	return httptransport.VerifyCodeResponse{Verified: true}, nil
}

// RecordLoginFailureHandler godoc
// @Summary Record a failed login
// @Tags access-guard
// @Accept json
// @Produce json
// @Param request body httptransport.LoginFailureRequest true "Username"
// @Success 200 {object} httptransport.LoginStatusResponse
// @Router /api/access/v1/login/failures [post]
func (h Handler) RecordLoginFailureHandler(ctx context.Context, req httptransport.LoginFailureRequest) (httptransport.LoginStatusResponse, error) {
	status, err := h.Login.RecordLoginFailure(ctx, req.Username)
	if err != nil {
		return httptransport.LoginStatusResponse{}, err
	}
	return mapLoginStatus(status), nil
}

// LoginStatusHandler godoc
// @Summary Login lockout status
// @Tags access-guard
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} httptransport.LoginStatusResponse
// @Router /api/access/v1/login/status [get]
func (h Handler) LoginStatusHandler(ctx context.Context, username string) (httptransport.LoginStatusResponse, error) {
	status, err := h.Login.Status(ctx, username)
	if err != nil {
		return httptransport.LoginStatusResponse{}, err
	}
	return mapLoginStatus(status), nil
}

func mapLoginStatus(status commands.LoginStatus) httptransport.LoginStatusResponse {
	resp := httptransport.LoginStatusResponse{
		Locked:   status.Locked,
		Attempts: status.Attempts,
	}
	if !status.WindowEndsAt.IsZero() {
		resp.WindowEndsAt = status.WindowEndsAt.UTC().Format(time.RFC3339)
	}
	return resp
}
