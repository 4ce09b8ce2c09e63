// Package config loads the settings of the fetch tool.
//
// Sources are applied in order, later ones winning:
// built-in defaults, an optional YAML file, then FETCH_ prefixed environment variables.
// FETCH_FETCH_MAXRETRIES=3 sets fetch.maxretries, FETCH_LOG_LEVEL=debug sets log.level.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"resource-fetch/application/fetch"
	"resource-fetch/application/fetch/auth"
	"resource-fetch/application/fetch/pool"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const EnvPrefix = "FETCH_"

type Config struct {
	Fetch FetchConfig `koanf:"fetch"`
	Retry RetryConfig `koanf:"retry"`
	Pool  PoolConfig  `koanf:"pool"`
	Auth  AuthConfig  `koanf:"auth"`
	Log   LogConfig   `koanf:"log"`
}

type FetchConfig struct {
	// MaxRedirects of -1 follows redirects without bound.
	MaxRedirects int           `koanf:"maxredirects" validate:"min=-1"`
	MaxRetries   int           `koanf:"maxretries" validate:"min=0"`
	ParseHeaders bool          `koanf:"parseheaders"`
	Compression  string        `koanf:"compression" validate:"oneof=none deflate gzip"`
	BaseURI      string        `koanf:"baseuri" validate:"omitempty,url"`
	UserAgent    string        `koanf:"useragent"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=0"`
	Rate         RateConfig    `koanf:"rate"`
}

// RateConfig paces hops. A zero Limit disables pacing.
type RateConfig struct {
	Limit float64 `koanf:"limit" validate:"min=0"`
	Burst int     `koanf:"burst" validate:"min=0"`
}

type RetryConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type PoolConfig struct {
	Workers int `koanf:"workers" validate:"min=1"`
	Queue   int `koanf:"queue" validate:"min=0"`
}

type AuthConfig struct {
	Username string `koanf:"username" validate:"required_with=Password"`
	Password string `koanf:"password"`
	Token    string `koanf:"token"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty"`
}

// Load reads the configuration. An empty path skips the file source.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   os.Environ,
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// envKey maps FETCH_POOL_WORKERS to pool.workers.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"fetch.maxredirects": 5,
		"fetch.maxretries":   1,
		"fetch.parseheaders": false,
		"fetch.compression":  string(fetch.CompressionNone),
		"fetch.baseuri":      "",
		"fetch.useragent":    "",
		"fetch.timeout":      "30s",
		"fetch.rate.limit":   0,
		"fetch.rate.burst":   1,

		"retry.timeout": fetch.DefaultRetryTimeout.String(),

		"pool.workers": 4,
		"pool.queue":   0,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			// First failure is enough to point at the broken key.
			fe := verrs[0]
			return errors.Errorf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// FetchConfig converts the loaded settings into a per-call fetch configuration.
func (c *Config) FetchConfig() (fetch.Config, error) {
	cfg := fetch.DefaultConfig()

	if c.Fetch.MaxRedirects < 0 {
		cfg.MaxRedirects = fetch.Unbounded()
	} else {
		cfg.MaxRedirects = fetch.Limited(uint(c.Fetch.MaxRedirects))
	}
	cfg.MaxRetries = uint(c.Fetch.MaxRetries)
	cfg.ParseHeaders = c.Fetch.ParseHeaders
	cfg.UserAgent = c.Fetch.UserAgent

	compression, err := fetch.ParseCompression(c.Fetch.Compression)
	if err != nil {
		return fetch.Config{}, err
	}
	cfg.Compression = compression

	if c.Fetch.BaseURI != "" {
		base, err := url.Parse(c.Fetch.BaseURI)
		if err != nil {
			return fetch.Config{}, errors.Wrapf(fetch.ErrInvalidURI, "base %q: %s", c.Fetch.BaseURI, err)
		}
		cfg.BaseURI = base
	}

	return cfg, nil
}

// Limiter returns nil when pacing is disabled.
func (c *Config) Limiter() *rate.Limiter {
	if c.Fetch.Rate.Limit == 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.Fetch.Rate.Limit), max(c.Fetch.Rate.Burst, 1))
}

// AuthResolver returns nil when no credentials are configured.
// A bearer token is offered before basic credentials.
func (c *Config) AuthResolver() fetch.AuthResolver {
	var chain auth.Chain
	if c.Auth.Token != "" {
		chain = append(chain, auth.Bearer{Token: c.Auth.Token})
	}
	if c.Auth.Username != "" {
		chain = append(chain, auth.Basic{Username: c.Auth.Username, Password: c.Auth.Password})
	}

	if len(chain) == 0 {
		return nil
	}
	return chain
}

func (c *Config) PoolOptions() pool.Options {
	return pool.Options{Workers: uint(c.Pool.Workers), QueueSize: uint(c.Pool.Queue)}
}
