package health

import "context"

// Strategy probes one dependency.
//
// Contract:
//   - Check performs a single attempt against target and fails when the
//     target is unreachable or reports an error. Implementations bound the
//     attempt with their own timeout and must honor ctx.
//   - Cleanup releases held connections. It must be idempotent.
//   - Concurrency: Check may be called concurrently.
type Strategy interface {
	Check(ctx context.Context, target string) (any, error)
	Cleanup(ctx context.Context) error
}

// Assessor classifies a successful probe result. Composite probes that only
// prove "I got a reply" use it to inspect the reply itself.
type Assessor interface {
	AreYouOK(result any) bool
}

// SummaryImprover attaches strategy-specific fields to a summary.
// last is nil when the latest check failed.
type SummaryImprover interface {
	ImproveSummary(summary *Summary, last any)
}

// StrategyConfig selects a strategy by type name.
type StrategyConfig struct {
	// Type is the strategy type. Default: "http"
	Type string `mapstructure:"type"`

	// Options are strategy-specific settings.
	Options map[string]any `mapstructure:",remain"`
}

// DefaultStrategyType is used when StrategyConfig.Type is empty.
const DefaultStrategyType = "http"

// StrategyFactory builds strategies from configuration.
type StrategyFactory interface {
	Build(cfg StrategyConfig) (Strategy, error)
}

// StrategyFunc adapts a function to a Strategy with a no-op Cleanup.
type StrategyFunc func(ctx context.Context, target string) (any, error)

// Check calls f.
func (f StrategyFunc) Check(ctx context.Context, target string) (any, error) {
	return f(ctx, target)
}

// Cleanup does nothing.
func (f StrategyFunc) Cleanup(context.Context) error {
	return nil
}
