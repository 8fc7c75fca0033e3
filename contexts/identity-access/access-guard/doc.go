// Package accessguard throttles credential checks with windowed attempt
// counters.
//
// Layering:
// - domain: attempt windows, verification codes, errors
// - application: attempt counter, login lockout, one-time codes, sweeper
// - ports: storage, clock and code delivery boundaries
// - adapters: memory, postgres, HTTP and a logging code sender
//
// Subject keys are hashed before they reach any store; raw phone numbers
// and usernames stay in the application layer.
package accessguard
