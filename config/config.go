package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/jonwraymond/copacetic/auth"
	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/interval"
	"github.com/jonwraymond/copacetic/observe"
	"github.com/jonwraymond/copacetic/probe"
)

// EnvPrefix prefixes every environment override, e.g. COPACETIC_HTTP_ADDR.
const EnvPrefix = "COPACETIC"

// Scheduler modes accepted in poll.mode.
const (
	ModeDirect = "direct"
	ModeEvents = "events"
)

type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Addr    string           `mapstructure:"addr"`
	Verbose bool             `mapstructure:"verbose"`
	Guard   auth.GuardConfig `mapstructure:"guard"`
}

type PollConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Schedule   string        `mapstructure:"schedule"`
	Sequential bool          `mapstructure:"sequential"`
	Mode       string        `mapstructure:"mode"`
}

// BackoffConfig is the exponential retry delay every dependency starts from.
type BackoffConfig struct {
	Constant   float64       `mapstructure:"constant"`
	Multiplier time.Duration `mapstructure:"multiplier"`
}

// DependencyConfig describes one dependency. Options are passed to the probe
// built for Type.
type DependencyConfig struct {
	Name    string         `mapstructure:"name"`
	URL     string         `mapstructure:"url"`
	Level   string         `mapstructure:"level"`
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// SecretsConfig configures secretref resolution of URLs and probe options.
// Providers maps a provider name to its settings.
type SecretsConfig struct {
	Strict    bool                      `mapstructure:"strict"`
	Providers map[string]map[string]any `mapstructure:"providers"`
}

type Config struct {
	Service      ServiceConfig      `mapstructure:"service"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Poll         PollConfig         `mapstructure:"poll"`
	Concurrency  int                `mapstructure:"concurrency"`
	Backoff      BackoffConfig      `mapstructure:"backoff"`
	Dependencies []DependencyConfig `mapstructure:"dependencies"`
	Wait         WaitConfig         `mapstructure:"wait"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Observe      observe.Config     `mapstructure:"observe"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "copacetic")
	v.SetDefault("service.version", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.verbose", false)
	v.SetDefault("http.guard.jwt_secret", "")
	v.SetDefault("poll.interval", "30s")
	v.SetDefault("poll.schedule", string(health.ScheduleStart))
	v.SetDefault("poll.sequential", false)
	v.SetDefault("poll.mode", ModeDirect)
	v.SetDefault("concurrency", 0)
	v.SetDefault("backoff.constant", 2.0)
	v.SetDefault("backoff.multiplier", "1ms")
	v.SetDefault("wait.timeout", "1m")
	v.SetDefault("wait.max_delay", "0")
	v.SetDefault("secrets.strict", false)
	v.SetDefault("observe.service_name", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "stdout")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")
}

// Load reads path, or copacetic.yaml from the working directory or ./config
// when path is empty. A missing file in the search path falls back to
// defaults and environment variables; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("copacetic")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		interval.DecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDerived() {
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = c.Service.Name
	}
	if c.Observe.Version == "" {
		c.Observe.Version = c.Service.Version
	}
	for i := range c.Dependencies {
		if c.Dependencies[i].Type == "" {
			c.Dependencies[i].Type = health.DefaultStrategyType
		}
	}
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Service, validation.By(func(value any) error {
			sc, ok := value.(ServiceConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
			}
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Name, validation.Required),
			)
		})),
		validation.Field(&c.HTTP, validation.By(func(value any) error {
			hc, ok := value.(HTTPConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an HTTPConfig")
			}
			return validation.ValidateStruct(&hc,
				validation.Field(&hc.Addr, validation.Required, validation.By(validateAddr)),
			)
		})),
		validation.Field(&c.Poll, validation.By(func(value any) error {
			pc, ok := value.(PollConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a PollConfig")
			}
			return validation.ValidateStruct(&pc,
				validation.Field(&pc.Interval, validation.Required, validation.Min(time.Millisecond)),
				validation.Field(&pc.Schedule, validation.In(string(health.ScheduleStart), string(health.ScheduleEnd))),
				validation.Field(&pc.Mode, validation.In(ModeDirect, ModeEvents)),
			)
		})),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.Backoff, validation.By(func(value any) error {
			bc, ok := value.(BackoffConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a BackoffConfig")
			}
			return validation.ValidateStruct(&bc,
				validation.Field(&bc.Constant, validation.Min(0.0).Exclusive()),
				validation.Field(&bc.Multiplier, validation.Min(time.Duration(0))),
			)
		})),
		validation.Field(&c.Dependencies,
			validation.By(uniqueNames),
			validation.Each(validation.By(validateDependency)),
		),
		validation.Field(&c.Wait, validation.By(func(value any) error {
			wc, ok := value.(WaitConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a WaitConfig")
			}
			return validation.ValidateStruct(&wc,
				validation.Field(&wc.Timeout, validation.Min(time.Duration(0))),
				validation.Field(&wc.MaxDelay, validation.Min(time.Duration(0))),
			)
		})),
		validation.Field(&c.Observe, validation.By(func(value any) error {
			oc, ok := value.(observe.Config)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an observe.Config")
			}
			return oc.Validate()
		})),
	)
}

func validateAddr(value any) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return is.Port.Validate(port)
}

func uniqueNames(value any) error {
	deps, ok := value.([]DependencyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of dependencies")
	}
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if seen[d.Name] {
			return validation.NewError("validation_duplicate_name", fmt.Sprintf("dependency %q is listed twice", d.Name))
		}
		seen[d.Name] = true
	}
	return nil
}

var strategyTypes = []any{
	probe.TypeHTTP, probe.TypeRemote, probe.TypeRedis,
	probe.TypePostgres, probe.TypeMongoDB, probe.TypeMemory,
}

func validateDependency(value any) error {
	d, ok := value.(DependencyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DependencyConfig")
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Level, validation.By(func(value any) error {
			if _, err := health.ParseLevel(value.(string)); err != nil {
				return validation.NewError("validation_invalid_level", "must be HARD or SOFT")
			}
			return nil
		})),
		validation.Field(&d.Type, validation.Required, validation.In(strategyTypes...)),
		validation.Field(&d.URL, validation.When(d.Type == probe.TypeHTTP || d.Type == probe.TypeRemote,
			validation.Required,
			validation.By(validateHTTPURL),
		)),
	)
}

// validateHTTPURL skips values that still hold secret references.
func validateHTTPURL(value any) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if strings.Contains(raw, "${") || strings.Contains(raw, "secretref:") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if u.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}
