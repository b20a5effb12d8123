package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testClientID = "client-1"
	testRedirect = "https://app.example/cb"
	testKeyID    = "test-key-1"
)

// googleStub plays the provider: a token endpoint handing out whatever
// idToken the test sets, and a JWKS endpoint publishing the signing key.
type googleStub struct {
	server    *httptest.Server
	key       *rsa.PrivateKey
	idToken   atomic.Pointer[string]
	tokenHits atomic.Int64
}

func newGoogleStub(t *testing.T) *googleStub {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	stub := &googleStub{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenHits.Add(1)
		body := map[string]any{
			"access_token": "stub-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if idToken := stub.idToken.Load(); idToken != nil && *idToken != "" {
			body["id_token"] = *idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub := &key.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": testKeyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *googleStub) verifier(t *testing.T) *GoogleVerifier {
	t.Helper()

	v, err := NewGoogle(context.Background(), GoogleConfig{
		ClientID:     testClientID,
		ClientSecret: "secret-1",
		RedirectURL:  testRedirect,
		TokenURL:     s.server.URL + "/token",
		JWKSURL:      s.server.URL + "/jwks",
		HTTPClient:   s.server.Client(),
	})
	if err != nil {
		t.Fatalf("new google verifier: %v", err)
	}
	return v
}

func (s *googleStub) sign(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return signed
}

func (s *googleStub) serve(idToken string) {
	s.idToken.Store(&idToken)
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"sub":   "sub-1",
		"aud":   testClientID,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "a@example.com",
		"name":  "A",
	}
}

func TestExchangeSuccess(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)
	stub.serve(stub.sign(t, testKeyID, validClaims()))

	assertion, err := v.Exchange(context.Background(), "code-1", "")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if assertion.SubjectID != "sub-1" {
		t.Fatalf("unexpected subject %q", assertion.SubjectID)
	}
	if assertion.Email != "a@example.com" {
		t.Fatalf("unexpected email %q", assertion.Email)
	}
	if assertion.Name != "A" {
		t.Fatalf("unexpected name %q", assertion.Name)
	}
	if v.Provider() != "google" {
		t.Fatalf("unexpected provider %q", v.Provider())
	}
}

func TestExchangeAcceptsMatchingRedirect(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)
	stub.serve(stub.sign(t, testKeyID, validClaims()))

	if _, err := v.Exchange(context.Background(), "code-1", testRedirect); err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
}

func TestExchangeRejectsRedirectMismatch(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	_, err := v.Exchange(context.Background(), "code-1", "https://evil.example/cb")
	if !errors.Is(err, ErrRedirectMismatch) {
		t.Fatalf("expected ErrRedirectMismatch, got %v", err)
	}
	// The mismatch must be caught before the code is ever sent out.
	if hits := stub.tokenHits.Load(); hits != 0 {
		t.Fatalf("token endpoint was called %d times", hits)
	}
}

func TestExchangeRejectsEmptyCode(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	if _, err := v.Exchange(context.Background(), "  ", ""); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
}

func TestExchangeRejectsMissingIDToken(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)
	stub.serve("")

	if _, err := v.Exchange(context.Background(), "code-1", ""); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
}

func TestExchangeRejectsBadClaims(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	cases := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }},
		{"unknown issuer", func(c jwt.MapClaims) { c["iss"] = "https://evil.example" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := validClaims()
			tc.mutate(claims)
			stub.serve(stub.sign(t, testKeyID, claims))

			if _, err := v.Exchange(context.Background(), "code-1", ""); !errors.Is(err, ErrUntrustedAssertion) {
				t.Fatalf("expected ErrUntrustedAssertion, got %v", err)
			}
		})
	}
}

func TestExchangeAcceptsAlternateIssuer(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	claims := validClaims()
	claims["iss"] = "accounts.google.com"
	stub.serve(stub.sign(t, testKeyID, claims))

	if _, err := v.Exchange(context.Background(), "code-1", ""); err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
}

func TestExchangeAcceptsAudienceArray(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	claims := validClaims()
	claims["aud"] = []string{"other-client", testClientID}
	stub.serve(stub.sign(t, testKeyID, claims))

	if _, err := v.Exchange(context.Background(), "code-1", ""); err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
}

func TestExchangeRejectsUnknownSigningKey(t *testing.T) {
	stub := newGoogleStub(t)
	v := stub.verifier(t)

	rogue, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	token.Header["kid"] = "rogue-key"
	signed, err := token.SignedString(rogue)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	stub.serve(signed)

	if _, err := v.Exchange(context.Background(), "code-1", ""); !errors.Is(err, ErrUntrustedAssertion) {
		t.Fatalf("expected ErrUntrustedAssertion, got %v", err)
	}
}

func TestNewGoogleRequiresCredentials(t *testing.T) {
	cases := []GoogleConfig{
		{},
		{ClientID: "id", ClientSecret: "secret"},
		{ClientID: "id", RedirectURL: testRedirect},
		{ClientSecret: "secret", RedirectURL: testRedirect},
	}
	for i, cfg := range cases {
		if _, err := NewGoogle(context.Background(), cfg); err == nil {
			t.Fatalf("case %d: expected configuration error", i)
		}
	}
}

func TestAudienceUnmarshal(t *testing.T) {
	var single audience
	if err := json.Unmarshal([]byte(`"one"`), &single); err != nil {
		t.Fatalf("unmarshal string aud: %v", err)
	}
	if !single.contains("one") {
		t.Fatal("expected string aud to be contained")
	}

	var many audience
	if err := json.Unmarshal([]byte(`["one","two"]`), &many); err != nil {
		t.Fatalf("unmarshal array aud: %v", err)
	}
	if !many.contains("two") || many.contains("three") {
		t.Fatal("unexpected array aud membership")
	}
}
