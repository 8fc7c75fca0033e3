// Package ballotservice implements ballot issuance and redemption inside the
// election context.
//
// The module owns the voting-token lifecycle (issue, single redemption), the
// election gate, and the redemption unit of work that turns one token into one
// anonymous vote. Stored votes never carry a voter or token identifier; voter
// eligibility is re-derived at redemption time instead of being trusted from
// the token.
package ballotservice
