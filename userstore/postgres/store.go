// Package postgres persists user records in PostgreSQL behind the
// tokenauth.UserStore interface.
//
// Expected schema:
//
//	CREATE TABLE users (
//	    id          BIGSERIAL PRIMARY KEY,
//	    provider    TEXT NOT NULL,
//	    provider_id TEXT NOT NULL,
//	    email       TEXT,
//	    name        TEXT,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    UNIQUE (provider, provider_id)
//	);
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planetory/tokenauth"
)

// ErrInvalidInput is returned for nil pools and blank lookup keys.
var ErrInvalidInput = errors.New("postgres store: invalid input")

// Store implements tokenauth.UserStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, ErrInvalidInput
	}
	return &Store{pool: pool}, nil
}

const userColumns = `id, provider, provider_id, COALESCE(email, ''), COALESCE(name, ''), created_at, updated_at`

// FindByProviderID fetches the user keyed by (provider, providerID).
func (s *Store) FindByProviderID(ctx context.Context, provider, providerID string) (*tokenauth.User, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(providerID) == "" {
		return nil, ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND provider_id = $2`,
		provider, providerID,
	)
	return scanUser(row)
}

// FindByID fetches the user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (*tokenauth.User, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// Upsert creates the user when absent and refreshes email and name when the
// (provider, providerID) pair already exists. The whole operation is one
// statement, so concurrent logins for the same external subject cannot
// create duplicates.
func (s *Store) Upsert(ctx context.Context, provider, providerID, email, name string) (*tokenauth.User, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(providerID) == "" {
		return nil, ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (provider, provider_id, email, name)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (provider, provider_id) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()
		 RETURNING `+userColumns,
		provider, providerID, email, name,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*tokenauth.User, error) {
	var user tokenauth.User
	err := row.Scan(
		&user.ID,
		&user.Provider,
		&user.ProviderID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tokenauth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
