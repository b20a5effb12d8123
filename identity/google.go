package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	googleIssuer    = "https://accounts.google.com"
	googleIssuerAlt = "accounts.google.com"

	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"
	defaultGoogleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleConfig holds the registered OAuth client credentials and the
// provider endpoints. TokenURL, JWKSURL, and Issuers default to Google's
// published values and only need overriding in tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is the single registered redirect target. Exchange rejects
	// any caller-supplied target that differs from it.
	RedirectURL string

	TokenURL string
	JWKSURL  string
	Issuers  []string

	// HTTPClient overrides the client used for the token-endpoint and JWKS
	// calls. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// GoogleVerifier implements [Verifier] against Google's OAuth 2.0
// authorization-code flow. Safe for concurrent use; the remote key set
// caches Google's signing keys between calls.
type GoogleVerifier struct {
	cfg    GoogleConfig
	oauth  oauth2.Config
	keys   *oidc.RemoteKeySet
	checks []claimCheck
}

// NewGoogle validates the client configuration and returns a ready verifier.
// Missing client credentials or redirect target are a configuration error,
// fatal at startup rather than surfaced per request.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*GoogleVerifier, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth client configuration is missing")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultGoogleJWKSURL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = []string{googleIssuer, googleIssuerAlt}
	}

	keyCtx := ctx
	if cfg.HTTPClient != nil {
		keyCtx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	return &GoogleVerifier{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		keys: oidc.NewRemoteKeySet(keyCtx, cfg.JWKSURL),
		checks: []claimCheck{
			checkNotExpired(time.Now),
			checkIssuer(cfg.Issuers),
			checkAudience(cfg.ClientID),
		},
	}, nil
}

// Provider implements [Verifier].
func (v *GoogleVerifier) Provider() string {
	return "google"
}

// Exchange implements [Verifier]. It posts the authorization code to the
// token endpoint (form-encoded, grant_type=authorization_code), verifies the
// returned ID token's signature against the published key set, and runs the
// claim chain. A caller-supplied redirectURI must match the registered one;
// an empty redirectURI skips the comparison.
func (v *GoogleVerifier) Exchange(ctx context.Context, code, redirectURI string) (*Assertion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code is required", ErrExchangeFailed)
	}
	if redirectURI != "" && redirectURI != v.cfg.RedirectURL {
		return nil, ErrRedirectMismatch
	}

	if v.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.cfg.HTTPClient)
	}

	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: provider returned no identity token", ErrExchangeFailed)
	}

	payload, err := v.keys.VerifySignature(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUntrustedAssertion, err)
	}

	var claims idClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUntrustedAssertion, err)
	}
	for _, check := range v.checks {
		if err := check(&claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUntrustedAssertion, err)
		}
	}

	return &Assertion{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}
