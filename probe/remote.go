package probe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/copacetic/health"
)

// Remote checks another service that serves its verbose health report.
// The check succeeds whenever a report is read, whatever its status code;
// AreYouOK then decides on the reported verdict.
type Remote struct {
	http *HTTP
}

// NewRemote creates a Remote strategy.
func NewRemote(cfg HTTPConfig) *Remote {
	return &Remote{http: NewHTTP(cfg)}
}

// Check fetches and decodes the remote report.
func (r *Remote) Check(ctx context.Context, target string) (any, error) {
	resp, err := r.http.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: %s returned %d without a health report", ErrStatus, redacted(target), resp.StatusCode)
	}
	return report, nil
}

// AreYouOK reports the remote's own verdict.
func (r *Remote) AreYouOK(result any) bool {
	report, ok := result.(health.Report)
	return ok && report.Healthy
}

// ImproveSummary attaches the remote's dependencies.
func (r *Remote) ImproveSummary(s *health.Summary, last any) {
	report, ok := last.(health.Report)
	if !ok {
		return
	}
	deps := make([]health.Summary, len(report.Dependencies))
	for i, d := range report.Dependencies {
		deps[i] = d.Clone()
	}
	s.Dependencies = deps
}

// Cleanup closes idle connections.
func (r *Remote) Cleanup(ctx context.Context) error {
	return r.http.Cleanup(ctx)
}
