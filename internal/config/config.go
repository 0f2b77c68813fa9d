package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/milestonectl/internal/milestone"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type TrackerConfig struct {
	Name        string
	Addr        string
	CorsOrigins []string
	// AuthToken gates tracker writes when set.
	AuthToken string
	Ledger    LedgerConfig
	Cache     CacheConfig
	Limits    LimitsConfig
}

// LedgerConfig seeds the in-memory ledger the daemon runs against.
type LedgerConfig struct {
	Recipient  milestone.Address
	Donor      milestone.Address
	Arbitrator milestone.Address
	// Vaults are opened in the in-memory vault registry at startup.
	Vaults []milestone.Address
}

type CacheConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type LimitsConfig struct {
	MaxBodyBytes int64
	MaxDepth     int
}

// milestonectl config.toml key mapping.
type fileConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AuthToken   string   `toml:"auth_token"`
	Ledger      struct {
		Recipient  string   `toml:"recipient"`
		Donor      string   `toml:"donor"`
		Arbitrator string   `toml:"arbitrator"`
		Vaults     []string `toml:"vaults"`
	} `toml:"ledger"`
	Cache struct {
		Backend       string `toml:"backend"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
		TTL           string `toml:"ttl"`
	} `toml:"cache"`
	Limits struct {
		MaxBodyBytes int64 `toml:"max_body_bytes"`
		MaxDepth     int   `toml:"max_depth"`
	} `toml:"limits"`
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Name: "milestonectl",
		Addr: ":9300",
		Cache: CacheConfig{
			Backend:   CacheMemory,
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Minute,
		},
		Limits: LimitsConfig{
			MaxBodyBytes: 1 << 20,
			MaxDepth:     16,
		},
	}
}

// LoadTrackerConfig overlays the keys present in path onto the defaults.
func LoadTrackerConfig(path string) (TrackerConfig, error) {
	cfg := DefaultTrackerConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return TrackerConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}

	for _, role := range []struct {
		key string
		raw string
		dst *milestone.Address
	}{
		{"recipient", raw.Ledger.Recipient, &cfg.Ledger.Recipient},
		{"donor", raw.Ledger.Donor, &cfg.Ledger.Donor},
		{"arbitrator", raw.Ledger.Arbitrator, &cfg.Ledger.Arbitrator},
	} {
		if !meta.IsDefined("ledger", role.key) {
			continue
		}
		a, err := milestone.ParseAddress(role.raw)
		if err != nil {
			return TrackerConfig{}, fmt.Errorf("config ledger.%s: %w", role.key, err)
		}
		*role.dst = a
	}
	for i, v := range raw.Ledger.Vaults {
		a, err := milestone.ParseAddress(v)
		if err != nil {
			return TrackerConfig{}, fmt.Errorf("config ledger.vaults[%d]: %w", i, err)
		}
		cfg.Ledger.Vaults = append(cfg.Ledger.Vaults, a)
	}

	if meta.IsDefined("cache", "backend") {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(raw.Cache.Backend))
	}
	if meta.IsDefined("cache", "redis_addr") {
		cfg.Cache.RedisAddr = strings.TrimSpace(raw.Cache.RedisAddr)
	}
	if meta.IsDefined("cache", "redis_password") {
		cfg.Cache.RedisPassword = raw.Cache.RedisPassword
	}
	if meta.IsDefined("cache", "redis_db") {
		cfg.Cache.RedisDB = raw.Cache.RedisDB
	}
	if meta.IsDefined("cache", "ttl") {
		ttl, err := time.ParseDuration(strings.TrimSpace(raw.Cache.TTL))
		if err != nil {
			return TrackerConfig{}, fmt.Errorf("config cache.ttl: %w", err)
		}
		cfg.Cache.TTL = ttl
	}
	if meta.IsDefined("limits", "max_body_bytes") {
		cfg.Limits.MaxBodyBytes = raw.Limits.MaxBodyBytes
	}
	if meta.IsDefined("limits", "max_depth") {
		cfg.Limits.MaxDepth = raw.Limits.MaxDepth
	}

	if err := ValidateTrackerConfig(cfg); err != nil {
		return TrackerConfig{}, err
	}
	return cfg, nil
}

func ValidateTrackerConfig(cfg TrackerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("tracker config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("tracker config missing addr")
	}
	switch cfg.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
			return fmt.Errorf("tracker config cache.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("tracker config unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend != CacheNone && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("tracker config cache.ttl must be positive")
	}
	if cfg.Limits.MaxBodyBytes <= 0 {
		return fmt.Errorf("tracker config limits.max_body_bytes must be positive")
	}
	if cfg.Limits.MaxDepth <= 0 {
		return fmt.Errorf("tracker config limits.max_depth must be positive")
	}
	return nil
}
