package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RequestCodeRequest struct {
	Phone string `json:"phone"`
}

type RequestCodeResponse struct {
	Sent      bool   `json:"sent"`
	ExpiresAt string `json:"expires_at"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

type LoginFailureRequest struct {
	Username string `json:"username"`
}

type LoginStatusResponse struct {
	Locked       bool   `json:"locked"`
	Attempts     int    `json:"attempts"`
	WindowEndsAt string `json:"window_ends_at,omitempty"`
}
