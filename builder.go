package tokenauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/planetory/tokenauth/identity"
	"github.com/planetory/tokenauth/jwt"
	"github.com/planetory/tokenauth/refresh"
)

// Builder assembles an [Engine]. Collaborators are wired through With*
// methods; Build validates the configuration and is the only place
// configuration errors can surface.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	userStore UserStore
	verifier  identity.Verifier
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the refresh-token store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the user record store consumed by the federated login
// and refresh flows.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithVerifier overrides the identity verifier. When unset and Google client
// credentials are configured, Build constructs a [identity.GoogleVerifier].
func (b *Builder) WithVerifier(v identity.Verifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the sink receiving audit events. Only consulted when
// auditing is enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs all subsystems, and returns
// a ready [Engine]. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := normalizeConfig(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret:    cfg.JWT.Secret,
		AccessTTL: cfg.JWT.AccessTTL,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	verifier := b.verifier
	if verifier == nil && cfg.Google.ClientID != "" {
		verifier, err = identity.NewGoogle(context.Background(), cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	return &Engine{
		config:       cfg,
		jwtManager:   jwtManager,
		refreshStore: refresh.NewStore(b.redis, refreshStoreConfig(cfg.Refresh)),
		verifier:     verifier,
		users:        b.userStore,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics.Enabled),
	}, nil
}
