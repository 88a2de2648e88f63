package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "tendril.yaml"

// Config is the run configuration of the CLI.
type Config struct {
	LogLevel        string           `mapstructure:"log_level"`
	LogFormat       string           `mapstructure:"log_format"`
	ConcurrentForks bool             `mapstructure:"concurrent_forks"`
	MaxCallDepth    int              `mapstructure:"max_call_depth"`
	Store           StoreConfig      `mapstructure:"store"`
	Repository      RepositoryConfig `mapstructure:"repository"`
	Lock            LockConfig       `mapstructure:"lock"`
}

// StoreConfig selects the backend of the store area. The memory backend gives
// each evaluation its own store; file and redis share one across evaluations.
type StoreConfig struct {
	// Backend is one of memory, file or redis.
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`

	// EncryptionKey is a base64 AES-256 key; stored values are encrypted when set.
	EncryptionKey string `mapstructure:"encryption_key"`
	// Mask lists regular expressions of keys whose values are masked before storing.
	Mask []string `mapstructure:"mask"`
}

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RepositoryConfig selects the persisted object graph.
type RepositoryConfig struct {
	// Backend is one of none, memory or badger.
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LockConfig serializes evaluations of a container through Redis.
type LockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		LogLevel: "warn",
		Store: StoreConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Repository: RepositoryConfig{Backend: "none"},
	}
}

// LoadConfig reads a YAML config file over the defaults.
// A missing file is not an error unless required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := DecodeConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes YAML into cfg, keeping the fields the document omits.
func DecodeConfig(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the backend names.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Repository.Backend {
	case "", "none", "memory", "badger":
	default:
		return fmt.Errorf("unknown repository backend %q", c.Repository.Backend)
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Store.Backend == "memory" && (c.Store.EncryptionKey != "" || len(c.Store.Mask) > 0) {
		return errors.New("store.encryption_key and store.mask need a persistent store backend (file or redis)")
	}
	if c.Store.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Store.EncryptionKey)
		if err != nil || len(key) != 32 {
			return errors.New("store.encryption_key must be a base64 encoded 32 byte key")
		}
	}
	if c.Repository.Backend == "badger" && c.Repository.Path == "" {
		return errors.New("repository.path is required for the badger backend")
	}
	return nil
}
