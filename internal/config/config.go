package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Protocol  ProtocolConfig  `yaml:"protocol" toml:"protocol"`
	Limits    LimitsConfig    `yaml:"limits" toml:"limits"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Retention RetentionConfig `yaml:"retention" toml:"retention"`
	Security  SecurityConfig  `yaml:"security" toml:"security"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

type ServerConfig struct {
	KafkaAddr string `yaml:"kafka_addr" toml:"kafka_addr"`
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`
}

type ProtocolConfig struct {
	// AdvertiseFetch lists Fetch in version-negotiation responses. Fetch
	// requests are served either way.
	AdvertiseFetch bool `yaml:"advertise_fetch" toml:"advertise_fetch"`
}

type LimitsConfig struct {
	MaxFrameSize   int32    `yaml:"max_frame_size" toml:"max_frame_size"`
	MaxConnections int      `yaml:"max_connections" toml:"max_connections"`
	IdleTimeout    Duration `yaml:"idle_timeout" toml:"idle_timeout"` // 0 disables
}

type StorageConfig struct {
	Backend        string `yaml:"backend" toml:"backend"` // memory, badger, badger:memory, sqlite, sqlite:memory
	DataDir        string `yaml:"data_dir" toml:"data_dir"`
	MemoryCapacity int    `yaml:"memory_capacity" toml:"memory_capacity"`
	SyncWrites     bool   `yaml:"sync_writes" toml:"sync_writes"`
}

type RetentionConfig struct {
	Enabled       bool     `yaml:"enabled" toml:"enabled"`
	MaxAge        Duration `yaml:"max_age" toml:"max_age"`
	CheckInterval Duration `yaml:"check_interval" toml:"check_interval"`
}

type SecurityConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Token   string `yaml:"token" toml:"token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // text or json
}

// Duration is a time.Duration written as "30s", "24h" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Storage backends
const (
	BackendMemory       = "memory"
	BackendBadger       = "badger"
	BackendBadgerMemory = "badger:memory"
	BackendSQLite       = "sqlite"
	BackendSQLiteMemory = "sqlite:memory"
)

// OnDisk reports whether the backend keeps files under DataDir.
func (s StorageConfig) OnDisk() bool {
	return s.Backend == BackendBadger || s.Backend == BackendSQLite
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			KafkaAddr: ":9092",
			HTTPAddr:  ":8080",
		},
		Limits: LimitsConfig{
			MaxFrameSize:   1_000_000,
			MaxConnections: 100,
		},
		Storage: StorageConfig{
			Backend:        BackendMemory,
			DataDir:        "./data",
			MemoryCapacity: 1024,
		},
		Retention: RetentionConfig{
			Enabled:       true,
			MaxAge:        Duration(24 * time.Hour),
			CheckInterval: Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads config from file, environment, with defaults. Files ending
// in .toml are parsed as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("MONOWIRE_KAFKA_ADDR"); v != "" {
		c.Server.KafkaAddr = v
	}
	if v := os.Getenv("MONOWIRE_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("MONOWIRE_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("MONOWIRE_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("MONOWIRE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MONOWIRE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MONOWIRE_MAX_FRAME_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("MONOWIRE_MAX_FRAME_SIZE: %w", err)
		}
		c.Limits.MaxFrameSize = int32(n)
	}
	if v := os.Getenv("MONOWIRE_AUTH_TOKEN"); v != "" {
		c.Security.Token = v
		c.Security.Enabled = true
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.KafkaAddr) == "" {
		return fmt.Errorf("server.kafka_addr is required")
	}
	if c.Limits.MaxFrameSize <= 0 {
		return fmt.Errorf("limits.max_frame_size must be positive, got %d", c.Limits.MaxFrameSize)
	}
	if c.Limits.MaxConnections <= 0 {
		return fmt.Errorf("limits.max_connections must be positive, got %d", c.Limits.MaxConnections)
	}
	if c.Limits.IdleTimeout < 0 {
		return fmt.Errorf("limits.idle_timeout must not be negative")
	}

	switch c.Storage.Backend {
	case BackendMemory:
		if c.Storage.MemoryCapacity <= 0 {
			return fmt.Errorf("storage.memory_capacity must be positive, got %d", c.Storage.MemoryCapacity)
		}
	case BackendBadgerMemory, BackendSQLiteMemory:
	case BackendBadger, BackendSQLite:
		if strings.TrimSpace(c.Storage.DataDir) == "" {
			return fmt.Errorf("storage.data_dir is required for %s", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Retention.Enabled && (c.Retention.MaxAge <= 0 || c.Retention.CheckInterval <= 0) {
		return fmt.Errorf("retention.max_age and retention.check_interval must be positive")
	}
	if c.Security.Enabled && c.Security.Token == "" {
		return fmt.Errorf("security.token is required when security is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
