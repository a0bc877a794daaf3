// Package device drives one router through its configuration lifecycle:
// connect (optionally waiting for boot), stage a candidate, then commit,
// discard, or compare it. Transport is delegated to a Driver; addressing
// is delegated to a Resolver.
package device

import "context"

// State is a router's lifecycle state. States only move forward.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStaged
	StateCommitted
	StateDiscarded
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
	StateStaged:       "staged",
	StateCommitted:    "committed",
	StateDiscarded:    "discarded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Final reports whether s is terminal for the run.
func (s State) Final() bool {
	return s == StateCommitted || s == StateDiscarded
}

// Credentials authenticate a driver session.
type Credentials struct {
	Username string
	Password string
}

// Driver is a device-family transport with candidate configuration
// support. Open may fail with family-specific "not reachable yet" errors
// while the device boots; the controller retries those it is configured
// to recognize.
type Driver interface {
	Open(ctx context.Context, addr string, creds Credentials) error
	LoadCandidate(ctx context.Context, config string) error
	Commit(ctx context.Context) error
	Discard(ctx context.Context) error
	Compare(ctx context.Context) (string, error)
	Close() error
}

// Resolver maps a router name to a network address.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context, name string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}
