package tokenauth

import (
	"context"
	"time"
)

// ProviderGoogle is the provider tag stored alongside users created through
// the Google authorization-code flow.
const ProviderGoogle = "google"

// Principal is the in-memory representation of an authenticated caller.
// It is constructed fresh per request and never persisted as an object;
// only its claims travel inside access tokens.
//
// UserID is nil for principals built from pre-verified first-party input
// that carries no local user record.
type Principal struct {
	UserID      *int64
	Name        string
	Nationality string
	ProviderID  string
}

// TrustedLogin is the input of the pre-verified first-party flow. The caller
// is trusted to have already authenticated the identity it describes.
type TrustedLogin struct {
	UserID      *int64 `json:"userId"`
	ProviderID  string `json:"providerId"`
	Name        string `json:"name"`
	Nationality string `json:"nationality"`
}

// TokenPair is returned by every issuing flow. RefreshToken is empty for the
// trusted first-party flow, which issues no refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User is the persisted account record owned by the external user store.
// The engine references it through [UserStore] and never mutates it directly.
type User struct {
	ID         int64
	Provider   string
	ProviderID string
	Email      string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserStore is the interface callers must implement to integrate tokenauth
// with their user database. Implementations must provide durable storage
// uniquely keyed on (provider, providerID).
//
// Lookup methods return [ErrUserNotFound] when no record matches.
// Upsert creates the record when absent and updates email and name when it
// already exists.
type UserStore interface {
	FindByProviderID(ctx context.Context, provider, providerID string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Upsert(ctx context.Context, provider, providerID, email, name string) (*User, error)
}
