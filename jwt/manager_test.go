package jwt

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Secret:    []byte("test-secret-test-secret-test-1234"),
		AccessTTL: ttl,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	return m
}

func TestCreateAccessRoundtrip(t *testing.T) {
	m := newTestManager(t, time.Hour)

	userID := int64(1)
	token, err := m.CreateAccess(&userID, "A", "KR", "p1")
	if err != nil {
		t.Fatalf("create access failed: %v", err)
	}

	if !m.Validate(token) {
		t.Fatal("expected freshly issued token to validate")
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access failed: %v", err)
	}
	if claims.Name != "A" {
		t.Fatalf("unexpected name claim %q", claims.Name)
	}
	if claims.Nationality != "KR" {
		t.Fatalf("unexpected nationality claim %q", claims.Nationality)
	}
	if claims.ProviderID != "p1" {
		t.Fatalf("unexpected provider claim %q", claims.ProviderID)
	}
	if claims.Subject != "p1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	got := claims.UserID()
	if got == nil || *got != 1 {
		t.Fatalf("unexpected user id claim %v", got)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp claims to be set")
	}
}

func TestCreateAccessWithoutUserID(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.CreateAccess(nil, "guest", "", "p9")
	if err != nil {
		t.Fatalf("create access failed: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access failed: %v", err)
	}
	if claims.ID != "" {
		t.Fatalf("expected empty id claim, got %q", claims.ID)
	}
	if claims.UserID() != nil {
		t.Fatal("expected nil user id")
	}
}

func TestValidateExpired(t *testing.T) {
	m := newTestManager(t, time.Nanosecond)

	token, err := m.CreateAccess(nil, "A", "", "p1")
	if err != nil {
		t.Fatalf("create access failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if m.Validate(token) {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	m := newTestManager(t, time.Hour)

	other, err := NewManager(Config{
		Secret:    []byte("another-secret-another-secret-99"),
		AccessTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	token, err := other.CreateAccess(nil, "A", "", "p1")
	if err != nil {
		t.Fatalf("create access failed: %v", err)
	}

	if m.Validate(token) {
		t.Fatal("expected token signed with a different key to fail validation")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := newTestManager(t, time.Hour)

	for _, input := range []string{"", "not-a-token", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		if m.Validate(input) {
			t.Fatalf("expected %q to fail validation", input)
		}
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	if _, err := NewManager(Config{AccessTTL: time.Hour}); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewManager(Config{Secret: []byte("k"), AccessTTL: 0}); err == nil {
		t.Fatal("expected error for zero TTL")
	}
	if _, err := NewManager(Config{Secret: []byte("k"), AccessTTL: time.Hour, Leeway: time.Hour}); err == nil {
		t.Fatal("expected error for out-of-range leeway")
	}
}
