package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/memocache/cache"
	"github.com/jonwraymond/memocache/observe"
	"github.com/jonwraymond/memocache/storage"
)

// Store drivers for persistent kinds.
const (
	DriverSession = "session"
	DriverSQLite  = "sqlite"
	DriverRedis   = "redis"
)

// Config is the top-level configuration.
type Config struct {
	Observe observe.Config `yaml:"observe"`
	Storage StorageConfig  `yaml:"storage"`
	Memo    MemoConfig     `yaml:"memo"`
	HTTP    HTTPConfig     `yaml:"http"`
}

// StorageConfig configures the registry and its persistent stores.
type StorageConfig struct {
	Serializer   string        `yaml:"serializer"`    // json|msgpack
	Keyer        string        `yaml:"keyer"`         // sha256|xxhash
	SessionQuota string        `yaml:"session_quota"` // byte size, e.g. "5 MiB"
	DefaultTTL   time.Duration `yaml:"default_ttl"`
	MaxTTL       time.Duration `yaml:"max_ttl"`
	Local        StoreConfig   `yaml:"local"`
	Session      StoreConfig   `yaml:"session"`
	Guard        GuardConfig   `yaml:"guard"`
}

// StoreConfig selects the store behind one persistent kind.
type StoreConfig struct {
	Driver string `yaml:"driver"` // session|sqlite|redis
	Path   string `yaml:"path"`   // sqlite database file
	URL    string `yaml:"url"`    // redis://host:port/db
	Prefix string `yaml:"prefix"` // redis key prefix
}

// GuardConfig configures the breaker, retries and deadline around sqlite
// and redis calls.
type GuardConfig struct {
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
	Attempts  int           `yaml:"attempts"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MemoConfig configures the memoized lookup of the memo demo.
type MemoConfig struct {
	Name     string        `yaml:"name"`
	TTL      time.Duration `yaml:"ttl"`
	MaxItems int           `yaml:"max_items"`
	Backend  string        `yaml:"backend"`
	Prefix   string        `yaml:"prefix"`
}

// HTTPConfig configures the cached client of the http demo.
type HTTPConfig struct {
	Name         string        `yaml:"name"`
	TTL          time.Duration `yaml:"ttl"`
	Backend      string        `yaml:"backend"`
	Prefix       string        `yaml:"prefix"`
	KeyBySubject bool          `yaml:"key_by_subject"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Observe: observe.Config{
			ServiceName: "memocache",
			Version:     "dev",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Storage: StorageConfig{
			Serializer:   "json",
			Keyer:        "sha256",
			SessionQuota: "5 MiB",
			Local:        StoreConfig{Driver: DriverSession},
			Session:      StoreConfig{Driver: DriverSession},
			Guard: GuardConfig{
				Threshold: 5,
				Cooldown:  30 * time.Second,
				Attempts:  3,
				Timeout:   2 * time.Second,
			},
		},
		Memo: MemoConfig{
			Name:     "frameworks",
			TTL:      5 * time.Second,
			MaxItems: 5,
			Backend:  string(storage.KindMemory),
		},
		HTTP: HTTPConfig{
			Name:    "todos",
			TTL:     5 * time.Second,
			Backend: string(storage.KindMemory),
		},
	}
}

// Load reads and validates the YAML file at path. Fields absent from the
// file keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment references in data, then decodes and validates
// it as YAML configuration.
func Parse(data []byte) (Config, error) {
	expanded, err := expandEnv(string(data))
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Observe.Validate(); err != nil {
		return err
	}
	if _, err := storage.SerializerByName(c.Storage.Serializer); err != nil {
		return err
	}
	if _, err := cache.KeyerByName(c.Storage.Keyer); err != nil {
		return err
	}
	if _, err := c.Storage.QuotaBytes(); err != nil {
		return err
	}
	if err := c.Storage.Local.validate(); err != nil {
		return fmt.Errorf("storage.local: %w", err)
	}
	if err := c.Storage.Session.validate(); err != nil {
		return fmt.Errorf("storage.session: %w", err)
	}

	g := c.Storage.Guard
	if g.Threshold < 0 || g.Cooldown < 0 || g.Attempts < 0 || g.Timeout < 0 {
		return ErrInvalidGuard
	}

	if err := validBackend(c.Memo.Backend); err != nil {
		return fmt.Errorf("memo: %w", err)
	}
	if err := validBackend(c.HTTP.Backend); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// QuotaBytes returns the session quota in bytes. Empty selects the storage
// default.
func (s StorageConfig) QuotaBytes() (int, error) {
	if s.SessionQuota == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.SessionQuota)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuota, s.SessionQuota)
	}
	return int(n), nil
}

func (s StoreConfig) validate() error {
	switch s.Driver {
	case "", DriverSession:
		return nil
	case DriverSQLite:
		if s.Path == "" {
			return ErrMissingPath
		}
		return nil
	case DriverRedis:
		if s.URL == "" {
			return ErrMissingURL
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, s.Driver)
	}
}

func validBackend(name string) error {
	if name == "" || storage.Kind(name).Valid() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidBackend, name)
}
