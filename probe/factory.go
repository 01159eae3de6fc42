package probe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/interval"
)

// Builder creates a strategy from type-specific options.
type Builder func(opts map[string]any) (health.Strategy, error)

// Strategy type names known to NewFactory.
const (
	TypeHTTP     = "http"
	TypeRemote   = "remote"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
	TypeMongoDB  = "mongodb"
	TypeMemory   = "memory"
)

// Factory builds strategies by type name. It implements
// health.StrategyFactory.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates a factory with every built-in strategy registered.
func NewFactory() *Factory {
	f := NewEmptyFactory()
	_ = f.Register(TypeHTTP, buildHTTP)
	_ = f.Register(TypeRemote, buildRemote)
	_ = f.Register(TypeRedis, buildTimeout(func(d time.Duration) health.Strategy { return NewRedis(d) }))
	_ = f.Register(TypePostgres, buildTimeout(func(d time.Duration) health.Strategy { return NewPostgres(d) }))
	_ = f.Register(TypeMongoDB, buildTimeout(func(d time.Duration) health.Strategy { return NewMongo(d) }))
	_ = f.Register(TypeMemory, buildMemory)
	return f
}

// NewEmptyFactory creates a factory with no strategies registered.
func NewEmptyFactory() *Factory {
	return &Factory{builders: make(map[string]Builder)}
}

// Register adds a builder.
func (f *Factory) Register(typ string, b Builder) error {
	typ = strings.TrimSpace(typ)
	if typ == "" || b == nil {
		return errors.New("probe: invalid strategy registration")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.builders[typ]; exists {
		return fmt.Errorf("probe: strategy type %q already registered", typ)
	}
	f.builders[typ] = b
	return nil
}

// Build instantiates cfg.Type with cfg.Options.
func (f *Factory) Build(cfg health.StrategyConfig) (health.Strategy, error) {
	typ := strings.TrimSpace(cfg.Type)
	if typ == "" {
		typ = health.DefaultStrategyType
	}

	f.mu.RLock()
	b, ok := f.builders[typ]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", health.ErrInvalidConfig, ErrUnknownType, typ)
	}

	s, err := b(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", health.ErrInvalidConfig, typ, err)
	}
	return s, nil
}

// Types returns registered type names.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for typ := range f.builders {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// DecodeOptions decodes strategy options into out. Durations accept human
// intervals ("5 seconds") and integer milliseconds; unknown keys are
// rejected.
func DecodeOptions(opts map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       interval.DecodeHook(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

type timeoutOptions struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

func buildTimeout(build func(time.Duration) health.Strategy) Builder {
	return func(opts map[string]any) (health.Strategy, error) {
		var o timeoutOptions
		if err := DecodeOptions(opts, &o); err != nil {
			return nil, err
		}
		return build(o.Timeout), nil
	}
}

func buildHTTP(opts map[string]any) (health.Strategy, error) {
	var cfg HTTPConfig
	if err := DecodeOptions(opts, &cfg); err != nil {
		return nil, err
	}
	return NewHTTP(cfg), nil
}

func buildRemote(opts map[string]any) (health.Strategy, error) {
	var cfg HTTPConfig
	if err := DecodeOptions(opts, &cfg); err != nil {
		return nil, err
	}
	return NewRemote(cfg), nil
}

func buildMemory(opts map[string]any) (health.Strategy, error) {
	var cfg MemoryConfig
	if err := DecodeOptions(opts, &cfg); err != nil {
		return nil, err
	}
	return NewMemory(cfg), nil
}
