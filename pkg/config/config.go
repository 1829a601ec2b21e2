// Package config loads and validates the swadm configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"github.com/metalfabric/swadm/pkg/session"
	"github.com/metalfabric/swadm/pkg/util"
)

// Defaults for the session and coordination parameters.
const (
	DefaultMaxConnections  = 4
	DefaultAcquireTimeout  = 60 * time.Second
	DefaultSlotTTL         = 120 * time.Second
	DefaultConnectTimeout  = 60 * time.Second
	DefaultConnectInterval = 10 * time.Second
	DefaultDialTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 30 * time.Second

	DefaultAuditMaxSize    = 10 * 1024 * 1024
	DefaultAuditMaxBackups = 10
)

// Coordination configures the distributed session-bounding backend.
// An empty BackendAddr disables coordination: operations then run
// unbounded, which is acceptable for single-operator use.
type Coordination struct {
	BackendAddr string `yaml:"backend_addr,omitempty"`
	Password    string `yaml:"password,omitempty"`
	DB          int    `yaml:"db,omitempty"`

	// MaxConnections is the per-device cap on concurrent management
	// sessions.
	MaxConnections int `yaml:"max_connections,omitempty"`

	AcquireTimeout time.Duration `yaml:"acquire_timeout,omitempty"`
	SlotTTL        time.Duration `yaml:"slot_ttl,omitempty"`
}

// Session configures connection establishment and exchange pacing.
type Session struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout,omitempty"`
	ConnectInterval time.Duration `yaml:"connect_interval,omitempty"`

	// DialTimeout bounds a single TCP+handshake attempt, as opposed to
	// ConnectTimeout which bounds the whole retry window.
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`

	// IdleTimeout bounds the silent gap within one command exchange.
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`
}

// Audit configures the provisioning audit trail. An empty Path disables
// it.
type Audit struct {
	Path       string `yaml:"path,omitempty"`
	MaxSize    int64  `yaml:"max_size,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// Config is the top-level swadm configuration.
type Config struct {
	Coordination Coordination `yaml:"coordination"`
	Session      Session      `yaml:"session"`
	Audit        Audit        `yaml:"audit"`
	LogLevel     string       `yaml:"log_level,omitempty"`
}

// Default returns a configuration with every parameter at its default.
func Default() *Config {
	return &Config{
		Coordination: Coordination{
			MaxConnections: DefaultMaxConnections,
			AcquireTimeout: DefaultAcquireTimeout,
			SlotTTL:        DefaultSlotTTL,
		},
		Session: Session{
			ConnectTimeout:  DefaultConnectTimeout,
			ConnectInterval: DefaultConnectInterval,
			DialTimeout:     DefaultDialTimeout,
			IdleTimeout:     DefaultIdleTimeout,
		},
		Audit: Audit{
			MaxSize:    DefaultAuditMaxSize,
			MaxBackups: DefaultAuditMaxBackups,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file, filling unset parameters with
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Coordination.MaxConnections == 0 {
		c.Coordination.MaxConnections = DefaultMaxConnections
	}
	if c.Coordination.AcquireTimeout == 0 {
		c.Coordination.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.Coordination.SlotTTL == 0 {
		c.Coordination.SlotTTL = DefaultSlotTTL
	}
	if c.Session.ConnectTimeout == 0 {
		c.Session.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Session.ConnectInterval == 0 {
		c.Session.ConnectInterval = DefaultConnectInterval
	}
	if c.Session.DialTimeout == 0 {
		c.Session.DialTimeout = DefaultDialTimeout
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = DefaultIdleTimeout
	}
	if c.Audit.MaxSize == 0 {
		c.Audit.MaxSize = DefaultAuditMaxSize
	}
	if c.Audit.MaxBackups == 0 {
		c.Audit.MaxBackups = DefaultAuditMaxBackups
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks parameter ranges.
func (c *Config) Validate() error {
	if c.Coordination.MaxConnections < 1 {
		return fmt.Errorf("%w: max_connections must be at least 1", util.ErrInvalidConfig)
	}
	if c.Session.ConnectInterval > c.Session.ConnectTimeout {
		return fmt.Errorf("%w: connect_interval exceeds connect_timeout", util.ErrInvalidConfig)
	}
	return nil
}

// GatewayConfig derives session gateway parameters.
func (c *Config) GatewayConfig() session.Config {
	return session.Config{
		MaxSessions:     c.Coordination.MaxConnections,
		AcquireTimeout:  c.Coordination.AcquireTimeout,
		SlotTTL:         c.Coordination.SlotTTL,
		ConnectTimeout:  c.Session.ConnectTimeout,
		ConnectInterval: c.Session.ConnectInterval,
	}
}

// CoordinationClient builds the backend client, or nil when no backend
// is configured.
func (c *Config) CoordinationClient() *redis.Client {
	if c.Coordination.BackendAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Coordination.BackendAddr,
		Password: c.Coordination.Password,
		DB:       c.Coordination.DB,
	})
}
