package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
)

const defaultRoleTTL = 10 * time.Minute

// RoleCache decorates a RoleRepository with a Redis read-through cache.
// Key format: role:<NAME>. Cache failures fall through to the store.
type RoleCache struct {
	next   ports.RoleRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRoleCache wraps next. A non-positive ttl uses defaultRoleTTL.
func NewRoleCache(next ports.RoleRepository, client *redis.Client, ttl time.Duration, log zerolog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &RoleCache{next: next, client: client, ttl: ttl, log: log}
}

type cachedRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *RoleCache) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	raw, err := c.client.Get(ctx, roleKey(name)).Bytes()
	switch {
	case err == nil:
		var cr cachedRole
		if jerr := json.Unmarshal(raw, &cr); jerr == nil && cr.ID != "" && domain.RoleName(cr.Name) == name {
			return &domain.Role{ID: cr.ID, Name: name}, nil
		}
		c.log.Warn().Str("role", string(name)).Msg("discarding malformed role cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("role", string(name)).Msg("role cache read failed")
	}

	role, err := c.next.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, role)
	return role, nil
}

func (c *RoleCache) Create(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	role, err := c.next.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, role)
	return role, nil
}

func (c *RoleCache) store(ctx context.Context, role *domain.Role) {
	payload, err := json.Marshal(cachedRole{ID: role.ID, Name: string(role.Name)})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, roleKey(role.Name), payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("role", string(role.Name)).Msg("role cache write failed")
	}
}

func roleKey(name domain.RoleName) string {
	return fmt.Sprintf("role:%s", name)
}

// Pinger reports Redis connectivity for readiness checks.
type Pinger struct {
	client *redis.Client
}

func NewPinger(client *redis.Client) *Pinger {
	return &Pinger{client: client}
}

func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
