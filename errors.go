package tokenauth

import "errors"

var (
	// ErrUnauthorized is returned for any refresh or logout failure that the
	// caller must treat as an authentication failure. It deliberately carries
	// no detail about which part of the chain failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound is returned by UserStore implementations when no user
	// matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called before a
	// required collaborator was wired through the Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrVerifierNotConfigured is returned by federated login when no
	// identity verifier was configured.
	ErrVerifierNotConfigured = errors.New("identity verifier not configured")
	// ErrInvalidConfig wraps all configuration problems detected by
	// Builder.Build. Configuration errors are fatal at startup, never
	// per-request.
	ErrInvalidConfig = errors.New("invalid configuration")
)
