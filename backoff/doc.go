// Package backoff implements the retry state machine used to probe
// dependencies.
//
// A Policy pairs a Strategy (the delay shape) with an attempt budget and an
// optional delay ceiling:
//
//	policy, err := backoff.NewExponentialPolicy(backoff.ExponentialConfig{
//	    Multiplier: time.Second,
//	}, backoff.WithRetries(3))
//
//	res, err := policy.Execute(ctx, func(ctx context.Context) (any, error) {
//	    return ping(ctx)
//	}, 5, 30*time.Second)
//
// # Semantics
//
//   - retries <= 0 retries until ctx is cancelled.
//   - maxDelay <= 0 leaves delays unbounded; otherwise every delay is capped
//     and, once the cap is hit, stays at the cap.
//   - Execute returns the last attempt's error only after the budget is spent.
//
// The package performs no I/O besides waiting on timers.
package backoff
