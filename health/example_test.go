package health_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/copacetic/backoff"
	"github.com/jonwraymond/copacetic/health"
)

func quickBackoff() *backoff.Policy {
	return backoff.New(backoff.Constant{Delay: time.Millisecond})
}

func ExampleRegistry_IsHealthy() {
	reg := health.NewRegistry("orders")

	_, _ = reg.Register(health.Options{
		Name:  "database",
		Level: health.LevelHard,
		Strategy: health.StrategyFunc(func(ctx context.Context, target string) (any, error) {
			return nil, errors.New("connection refused")
		}),
		Backoff: quickBackoff(),
	})
	_, _ = reg.Register(health.Options{
		Name: "recommendations",
		Strategy: health.StrategyFunc(func(ctx context.Context, target string) (any, error) {
			return "ok", nil
		}),
		Backoff: quickBackoff(),
	})

	fmt.Println("before checks:", reg.IsHealthy())

	s := health.NewScheduler(reg)
	summaries, _ := s.CheckAll(context.Background(), false)
	for _, sum := range summaries {
		fmt.Printf("%s (%s): healthy=%v\n", sum.Name, sum.Level, sum.Healthy)
	}
	fmt.Println("after checks:", reg.IsHealthy())
	// Output:
	// before checks: true
	// database (HARD): healthy=false
	// recommendations (SOFT): healthy=true
	// after checks: false
}

func ExampleScheduler_Check() {
	reg := health.NewRegistry("orders")
	attempts := 0
	_, _ = reg.Register(health.Options{
		Name:  "queue",
		Level: health.LevelHard,
		Strategy: health.StrategyFunc(func(ctx context.Context, target string) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("not yet")
			}
			return "ok", nil
		}),
		Backoff: quickBackoff(),
	})

	s := health.NewScheduler(reg)
	summaries, err := s.Check(context.Background(), health.CheckOptions{Name: "queue", Retries: 5})

	fmt.Println("error:", err)
	fmt.Println("healthy:", summaries[0].Healthy)
	fmt.Println("attempts:", attempts)
	// Output:
	// error: <nil>
	// healthy: true
	// attempts: 3
}

func ExampleUnhealthyError() {
	reg := health.NewRegistry("orders")
	_, _ = reg.Register(health.Options{
		Name: "cache",
		Strategy: health.StrategyFunc(func(ctx context.Context, target string) (any, error) {
			return nil, errors.New("timeout")
		}),
		Backoff: quickBackoff(),
	})

	_, err := health.NewScheduler(reg).CheckOne(context.Background(), "cache", 1, 0)

	var ue *health.UnhealthyError
	if errors.As(err, &ue) {
		fmt.Println(ue.Summary.Name, ue.Summary.Healthy)
	}
	fmt.Println(errors.Is(err, health.ErrUnhealthy))
	// Output:
	// cache false
	// true
}
