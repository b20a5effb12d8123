package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRedirectMismatch is returned when the caller supplies a redirect
	// target that differs from the registered one. Callers must not be able
	// to redirect the exchanged identity to an unregistered target.
	ErrRedirectMismatch = errors.New("redirect uri does not match registered redirect uri")
	// ErrExchangeFailed is returned when the provider's token endpoint
	// rejects the code or returns no identity token.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	// ErrUntrustedAssertion is returned when the identity token fails
	// signature, expiry, issuer, or audience validation.
	ErrUntrustedAssertion = errors.New("identity token failed validation")
)

// Assertion is a verified external identity. It is transient: the engine
// uses it once to create or update a persisted user record.
type Assertion struct {
	SubjectID string
	Email     string
	Name      string
}

// Verifier exchanges an authorization code for a verified identity
// assertion. Implementations validate the provider's identity token before
// returning; a returned Assertion is trusted.
type Verifier interface {
	// Provider is the tag stored on user records created from this
	// verifier's assertions.
	Provider() string
	Exchange(ctx context.Context, code, redirectURI string) (*Assertion, error)
}

// idClaims is the subset of ID-token claims the validator chain inspects.
type idClaims struct {
	Issuer   string   `json:"iss"`
	Subject  string   `json:"sub"`
	Audience audience `json:"aud"`
	Expiry   int64    `json:"exp"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
}

// audience tolerates the aud claim arriving as either a string or an array.
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = audience(many)
	return nil
}

func (a audience) contains(value string) bool {
	for _, entry := range a {
		if entry == value {
			return true
		}
	}
	return false
}

// claimCheck is one link of the validation chain. Every check must pass;
// the chain is order-independent.
type claimCheck func(*idClaims) error

func checkNotExpired(now func() time.Time) claimCheck {
	return func(c *idClaims) error {
		if c.Expiry <= 0 || now().After(time.Unix(c.Expiry, 0)) {
			return errors.New("identity token expired")
		}
		return nil
	}
}

func checkIssuer(issuers []string) claimCheck {
	return func(c *idClaims) error {
		for _, issuer := range issuers {
			if c.Issuer == issuer {
				return nil
			}
		}
		return fmt.Errorf("unknown issuer %q", c.Issuer)
	}
}

func checkAudience(clientID string) claimCheck {
	return func(c *idClaims) error {
		if clientID == "" {
			return nil
		}
		if !c.Audience.contains(clientID) {
			return errors.New("audience does not contain client id")
		}
		return nil
	}
}
