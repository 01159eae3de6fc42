package probe

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jonwraymond/copacetic/health"
)

// MemoryConfig configures the memory strategy.
type MemoryConfig struct {
	// CriticalThreshold is the fraction of MaxAlloc at which the check fails.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64 `mapstructure:"critical_threshold"`

	// MaxAlloc is the allocation budget in bytes.
	// If zero, memory obtained from the OS is used.
	MaxAlloc uint64 `mapstructure:"max_alloc"`
}

// MemoryResult is the heap snapshot of one check.
type MemoryResult struct {
	AllocBytes   uint64  `json:"alloc_bytes"`
	MaxAlloc     uint64  `json:"max_alloc"`
	UsagePercent float64 `json:"usage_percent"`
	HeapObjects  uint64  `json:"heap_objects"`
	NumGC        uint32  `json:"num_gc"`
	Goroutines   int     `json:"goroutines"`
}

// Memory checks the current process's heap. The target is ignored, so a
// service can register itself as a dependency.
type Memory struct {
	config MemoryConfig
}

// NewMemory creates a memory strategy.
func NewMemory(config MemoryConfig) *Memory {
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	return &Memory{config: config}
}

// Check reads runtime memory stats.
func (m *Memory) Check(ctx context.Context, _ string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}

	result := MemoryResult{
		AllocBytes:  stats.Alloc,
		MaxAlloc:    maxAlloc,
		HeapObjects: stats.HeapObjects,
		NumGC:       stats.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
	if maxAlloc == 0 {
		return result, nil
	}

	usage := float64(stats.Alloc) / float64(maxAlloc)
	result.UsagePercent = usage * 100
	if usage >= m.config.CriticalThreshold {
		return nil, fmt.Errorf("%w: %.1f%%", ErrMemoryCritical, result.UsagePercent)
	}
	return result, nil
}

// ImproveSummary exposes the latest snapshot as details.
func (m *Memory) ImproveSummary(s *health.Summary, last any) {
	r, ok := last.(MemoryResult)
	if !ok {
		return
	}
	s.Details = map[string]any{
		"alloc_bytes":   r.AllocBytes,
		"max_alloc":     r.MaxAlloc,
		"usage_percent": r.UsagePercent,
		"heap_objects":  r.HeapObjects,
		"num_gc":        r.NumGC,
		"goroutines":    r.Goroutines,
	}
}

// Cleanup does nothing.
func (m *Memory) Cleanup(context.Context) error {
	return nil
}
