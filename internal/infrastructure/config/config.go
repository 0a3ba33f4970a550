package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	InternalAPIKey  string        `env:"INTERNAL_API_KEY, required"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=mongo"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Hashing  HashingConfig
	Seed     SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=connectrh_core"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

// RedisConfig enables the role cache when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	RoleTTL  time.Duration `env:"ROLE_CACHE_TTL, default=10m"`
}

type HashingConfig struct {
	Algorithm  string `env:"HASH_ALGORITHM, default=bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST,    default=10"`
}

type SeedConfig struct {
	Enabled       bool   `env:"SEED_ENABLED,        default=true"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL,    default=admin@connectrh.com"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD, default=admin123"`
	AdminName     string `env:"SEED_ADMIN_NAME,     default=System Administrator"`
	AdminPhone    string `env:"SEED_ADMIN_PHONE,    default=11954444380"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InternalAPIKey) == "" {
		return fmt.Errorf("config: INTERNAL_API_KEY must not be blank")
	}

	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q (use mongo, postgres or memory)", c.StoreDriver)
	}

	switch strings.ToLower(c.Hashing.Algorithm) {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("config: unsupported HASH_ALGORITHM %q (use bcrypt or argon2id)", c.Hashing.Algorithm)
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
