package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport or protocol failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrTokenNotFound is returned when the presented token was never issued,
// was already consumed, or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrTokenStale is returned when the token record exists but its embedded
// version no longer matches the user's current version counter: a
// session-wide revocation happened after issuance, or the token survived a
// rotation it should not have.
var ErrTokenStale = errors.New("refresh token stale")

// ErrCorruptRecord is returned when a stored token record cannot be parsed.
var ErrCorruptRecord = errors.New("refresh token record corrupt")

const (
	consumeStatusNotFound int64 = 0
	consumeStatusStale    int64 = 1
	consumeStatusConsumed int64 = 2
)

// The whole redemption must be atomic: two concurrent consumers of the same
// token must not both observe it present. The script reads the record,
// compares its embedded version against the user's current counter, and
// deletes the record only on a match. A stale record is left in place to
// expire by TTL.
const consumeScript = `
local value = redis.call("GET", KEYS[1])
if not value then
  return {0}
end

local uid = value
local ver = "0"
local sep = string.find(value, ":", 1, true)
if sep then
  uid = string.sub(value, 1, sep - 1)
  ver = string.sub(value, sep + 1)
end

local current = redis.call("GET", ARGV[1] .. uid)
if not current then
  current = "0"
end
if tonumber(ver) ~= tonumber(current) then
  return {1}
end

redis.call("DEL", KEYS[1])
return {2, uid}
`

var consumeLua = redis.NewScript(consumeScript)

// Config defines the store's key layout and token lifetime.
type Config struct {
	// TTL bounds the lifetime of a single token. Default 7 days.
	TTL time.Duration
	// KeyPrefix namespaces token records. Default "refresh:".
	KeyPrefix string
	// VersionKeyPrefix namespaces per-user version counters. Default
	// "refreshver:".
	VersionKeyPrefix string
}

// Store issues, consumes, and revokes opaque refresh tokens. All state
// lives in Redis; Store itself is immutable and safe for concurrent use.
type Store struct {
	redis redis.UniversalClient
	cfg   Config
}

// NewStore creates a refresh-token [Store] backed by the given Redis client.
func NewStore(rdb redis.UniversalClient, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "refresh:"
	}
	if cfg.VersionKeyPrefix == "" {
		cfg.VersionKeyPrefix = "refreshver:"
	}
	return &Store{redis: rdb, cfg: cfg}
}

func (s *Store) key(token string) string {
	return s.cfg.KeyPrefix + token
}

func (s *Store) versionKey(userID int64) string {
	return s.cfg.VersionKeyPrefix + strconv.FormatInt(userID, 10)
}

// Issue generates a new opaque token bound to userID and the user's current
// version, and stores it with the configured TTL. Concurrent Issue calls for
// the same user do not interfere; each produces an independent, co-existing
// token, one per session or device.
//
// An Issue racing a RevokeAll may mint a token under either the old or the
// new version. That is acceptable: a token minted under the old version is
// simply dead on arrival.
func (s *Store) Issue(ctx context.Context, userID int64) (string, error) {
	version, err := s.UserVersion(ctx, userID)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	value := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(version, 10)

	if err := s.redis.Set(ctx, s.key(token), value, s.cfg.TTL).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// ConsumeAndRotate atomically redeems a token and returns the user ID it was
// bound to. A successful consume deletes the record unconditionally; the
// token grants exactly one rotation, whether or not the caller's subsequent
// issuance succeeds.
//
// Returns [ErrTokenNotFound] when the token was never issued, already
// consumed, or expired, and [ErrTokenStale] when a revocation outran it.
// Callers must treat both as authentication failure, not as errors to retry.
func (s *Store) ConsumeAndRotate(ctx context.Context, token string) (int64, error) {
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(token)},
		s.cfg.VersionKeyPrefix,
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return 0, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}
	status, ok := parts[0].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch status {
	case consumeStatusNotFound:
		return 0, ErrTokenNotFound
	case consumeStatusStale:
		return 0, ErrTokenStale
	case consumeStatusConsumed:
		if len(parts) < 2 {
			return 0, fmt.Errorf("%w: missing user id in consume response", ErrRedisUnavailable)
		}
		raw, ok := parts[1].(string)
		if !ok {
			return 0, fmt.Errorf("%w: invalid user id in consume response", ErrRedisUnavailable)
		}
		userID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorruptRecord, parseErr)
		}
		return userID, nil
	default:
		return 0, fmt.Errorf("%w: unknown consume script status %d", ErrRedisUnavailable, status)
	}
}

// RevokeAll atomically increments the user's version counter, invalidating
// every outstanding refresh token for that user without a scan or delete.
// Previously issued records remain in Redis until their TTL elapses but are
// rejected by ConsumeAndRotate from this point on.
func (s *Store) RevokeAll(ctx context.Context, userID int64) error {
	if err := s.redis.Incr(ctx, s.versionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// UserVersion returns the user's current version counter. A user that has
// never been revoked has no counter key and reports version 0.
func (s *Store) UserVersion(ctx context.Context, userID int64) (int64, error) {
	version, err := s.redis.Get(ctx, s.versionKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return version, nil
}
