package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config defines the signing configuration of a [Manager].
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	// Secret is the symmetric HS256 signing key.
	Secret []byte
	// AccessTTL is the validity window applied at issuance.
	AccessTTL time.Duration
	// Leeway tolerates clock skew during expiry validation.
	Leeway time.Duration
}

// Manager issues and validates access tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the claim set embedded in every access token. The subject
// is the external provider identifier; the registered ID claim carries the
// local user ID when one exists.
type AccessClaims struct {
	Name        string `json:"name,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	ProviderID  string `json:"providerId,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the local user ID carried in the registered ID claim, or
// nil when the token was issued without one (trusted first-party flow).
func (c *AccessClaims) UserID() *int64 {
	if c == nil || c.ID == "" {
		return nil
	}
	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// NewManager validates cfg and returns a ready [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a signing secret")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// CreateAccess signs a new access token embedding the given principal
// claims. userID may be nil; every other claim is written as supplied.
// Issued-at is now, expiry is now plus the configured validity window.
func (m *Manager) CreateAccess(userID *int64, name, nationality, providerID string) (string, error) {
	now := time.Now()

	claims := AccessClaims{
		Name:        name,
		Nationality: nationality,
		ProviderID:  providerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   providerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	if userID != nil {
		claims.ID = strconv.FormatInt(*userID, 10)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Validate reports whether the token carries a valid signature and has not
// expired. It returns false, never an error, on malformed, expired, or
// mis-signed input: validation gates a request-processing filter that must
// not abort the pipeline.
func (m *Manager) Validate(tokenStr string) bool {
	_, err := m.ParseAccess(tokenStr)
	return err == nil
}

// ParseAccess verifies the token and returns its claims. Callers that only
// need a pass/fail signal should use [Manager.Validate]; callers extracting
// claims must have validated the same token immediately before.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
