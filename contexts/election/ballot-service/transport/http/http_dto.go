package http

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type ElectionStatusResponse struct {
	ElectionID    string `json:"election_id"`
	Open          bool   `json:"open"`
	VotesRecorded int64  `json:"votes_recorded"`
}

type IssueTokenResponse struct {
	TokenID   string `json:"token_id"`
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expires_at"`
}

type SubmitVoteRequest struct {
	TokenID     string `json:"token_id"`
	CandidateID string `json:"candidate_id"`
	Nonce       string `json:"nonce,omitempty"`
}

type SubmitVoteResponse struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	Recorded    bool   `json:"recorded"`
}
