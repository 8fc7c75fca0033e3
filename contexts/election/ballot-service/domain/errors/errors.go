package errors

import "errors"

// Messages are fixed strings. Never wrap these with voter, token, or
// candidate identifiers.
var (
	ErrInvalidBallotInput            = errors.New("invalid ballot input")
	ErrElectionNotOpen               = errors.New("election is not open")
	ErrVoterNotFound                 = errors.New("voter not found")
	ErrVoterInactive                 = errors.New("voter is not active")
	ErrAlreadyVoted                  = errors.New("voter has already voted")
	ErrInvalidVoteToken              = errors.New("invalid vote token")
	ErrTokenAlreadyUsed              = errors.New("vote token already used")
	ErrTokenExpired                  = errors.New("vote token expired")
	ErrTokenNonceMismatch            = errors.New("vote token nonce mismatch")
	ErrInvalidCandidate              = errors.New("invalid candidate")
	ErrStorageTransactionUnsupported = errors.New("storage does not support atomic multi-record transactions")
	ErrStorageConflict               = errors.New("storage transaction conflict")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidBallotInput, "INVALID_BALLOT_INPUT"},
	{ErrElectionNotOpen, "ELECTION_NOT_OPEN"},
	{ErrVoterNotFound, "VOTER_NOT_FOUND"},
	{ErrVoterInactive, "VOTER_INACTIVE"},
	{ErrAlreadyVoted, "ALREADY_VOTED"},
	{ErrInvalidVoteToken, "INVALID_VOTE_TOKEN"},
	{ErrTokenAlreadyUsed, "TOKEN_ALREADY_USED"},
	{ErrTokenExpired, "TOKEN_EXPIRED"},
	{ErrTokenNonceMismatch, "TOKEN_NONCE_MISMATCH"},
	{ErrInvalidCandidate, "INVALID_CANDIDATE"},
	{ErrStorageTransactionUnsupported, "STORAGE_TRANSACTION_UNSUPPORTED"},
	{ErrStorageConflict, "STORAGE_CONFLICT"},
}

// Kind returns the stable machine-readable code for a ballot error, or
// "INTERNAL" when err is not one of the named kinds.
func Kind(err error) string {
	for _, item := range kinds {
		if errors.Is(err, item.err) {
			return item.kind
		}
	}
	return "INTERNAL"
}

// Retryable reports whether a caller may resubmit the same request. Named
// logical failures are never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}
