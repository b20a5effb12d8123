package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/planetory/tokenauth/identity"
	"github.com/planetory/tokenauth/jwt"
	"github.com/planetory/tokenauth/refresh"
)

// Engine orchestrates the token lifecycle: trusted and federated issuance,
// refresh rotation, and session-wide revocation. Instances are immutable
// after [Builder.Build] and safe for concurrent use; all cross-request state
// lives in the external stores.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	refreshStore *refresh.Store
	verifier     identity.Verifier
	users        UserStore
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher. Safe to call on a nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// IssueTrusted builds a principal directly from pre-verified first-party
// input and issues an access token for it. No refresh token is issued and no
// state is written; the caller is trusted to have authenticated the identity
// it describes.
func (e *Engine) IssueTrusted(ctx context.Context, in TrustedLogin) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	access, err := e.jwtManager.CreateAccess(in.UserID, in.Name, in.Nationality, in.ProviderID)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricTrustedIssue)
	e.auditEmit(ctx, AuditTrustedIssue, in.UserID, true, nil)

	return &TokenPair{AccessToken: access}, nil
}

// LoginWithAuthCode runs the federated login flow: the authorization code is
// exchanged for a verified identity assertion, the user record is created or
// updated, and both an access token and a refresh token are issued.
//
// Trust-chain failures (redirect mismatch, exchange failure, untrusted
// assertion) propagate as the identity package's sentinel errors; transports
// should collapse them all into one generic unauthorized response.
func (e *Engine) LoginWithAuthCode(ctx context.Context, code, redirectURI string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.refreshStore == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if e.verifier == nil {
		return nil, ErrVerifierNotConfigured
	}

	assertion, err := e.verifier.Exchange(ctx, code, redirectURI)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.auditEmit(ctx, AuditLogin, nil, false, err)
		return nil, err
	}

	user, err := e.users.Upsert(ctx, e.verifier.Provider(), assertion.SubjectID, assertion.Email, assertion.Name)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.auditEmit(ctx, AuditLogin, nil, false, err)
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	pair, err := e.issuePair(ctx, principalOfUser(user), user.ID)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.auditEmit(ctx, AuditLogin, &user.ID, false, err)
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.auditEmit(ctx, AuditLogin, &user.ID, true, nil)
	return pair, nil
}

// Refresh redeems a refresh token and issues a fresh token pair. The
// presented token is consumed atomically before anything else happens;
// whatever the outcome of the re-issuance, it never grants a second
// rotation.
//
// Every rejection surfaces as [ErrUnauthorized] with no further detail, so
// callers cannot distinguish never-issued, already-consumed, expired, and
// revoked tokens.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.refreshStore == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	userID, err := e.refreshStore.ConsumeAndRotate(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrTokenStale):
			e.metrics.Inc(MetricRefreshReuseDetected)
			e.metrics.Inc(MetricRefreshFailure)
			e.auditEmit(ctx, AuditRefreshReuse, nil, false, err)
			return nil, ErrUnauthorized
		case errors.Is(err, refresh.ErrTokenNotFound), errors.Is(err, refresh.ErrCorruptRecord):
			e.metrics.Inc(MetricRefreshFailure)
			e.auditEmit(ctx, AuditRefresh, nil, false, err)
			return nil, ErrUnauthorized
		default:
			// Store unavailability is not an authentication failure;
			// propagate for the caller or upstream infrastructure to retry.
			return nil, err
		}
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.auditEmit(ctx, AuditRefresh, &userID, false, err)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	pair, err := e.issuePair(ctx, principalOfUser(user), user.ID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.auditEmit(ctx, AuditRefresh, &user.ID, false, err)
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.auditEmit(ctx, AuditRefresh, &user.ID, true, nil)
	return pair, nil
}

// Logout revokes every outstanding refresh token of the authenticated
// principal by incrementing the user's version counter. It requires a
// principal with a user ID; anonymous callers and trusted-input principals
// without a local record get [ErrUnauthorized].
func (e *Engine) Logout(ctx context.Context, p *Principal) error {
	if e == nil || e.refreshStore == nil {
		return ErrEngineNotReady
	}
	if p == nil || p.UserID == nil {
		return ErrUnauthorized
	}

	if err := e.refreshStore.RevokeAll(ctx, *p.UserID); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.auditEmit(ctx, AuditLogout, p.UserID, true, nil)
	return nil
}

// Validate reports whether an access token carries a valid signature and has
// not expired. It never returns an error; validation gates the request
// filter and must not abort the pipeline.
func (e *Engine) Validate(tokenStr string) bool {
	if e == nil || e.jwtManager == nil {
		return false
	}
	return e.jwtManager.Validate(tokenStr)
}

// PrincipalOf re-parses a validated access token's claims into a
// [Principal]. Calling it on a token that did not just pass [Engine.Validate]
// is a caller error: claims of forged or expired tokens are undefined.
func (e *Engine) PrincipalOf(tokenStr string) (*Principal, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID:      claims.UserID(),
		Name:        claims.Name,
		Nationality: claims.Nationality,
		ProviderID:  claims.ProviderID,
	}, nil
}

func (e *Engine) issuePair(ctx context.Context, p Principal, userID int64) (*TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(p.UserID, p.Name, p.Nationality, p.ProviderID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := e.refreshStore.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// principalOfUser derives a request principal from a stored user record.
// The display name falls back to the email when the record has none.
func principalOfUser(user *User) Principal {
	id := user.ID
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return Principal{
		UserID:     &id,
		Name:       name,
		ProviderID: user.ProviderID,
	}
}

func (e *Engine) auditEmit(ctx context.Context, eventType string, userID *int64, success bool, cause error) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if userID != nil {
		event.UserID = strconv.FormatInt(*userID, 10)
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	e.audit.Emit(ctx, event)
}
