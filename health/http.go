package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler reports the registry's last known aggregate health as
// plain text. It never triggers checks.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if reg.IsHealthy() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNHEALTHY"))
	}
}

// StatusHandler serves the registry's last known state. Verbose writes the
// Report as JSON; otherwise only the status code is set. Either way the
// code is 200 when healthy and 503 when a HARD dependency is down.
func StatusHandler(reg *Registry, verbose bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := reg.Report()
		code := http.StatusOK
		if !report.Healthy {
			code = http.StatusServiceUnavailable
		}

		if !verbose {
			w.WriteHeader(code)
			return
		}
		writeJSON(w, code, report)
	}
}

// CheckHandler runs an on-demand check of the dependency named by the
// "name" query parameter and writes its Summary. Concurrent requests for the
// same name share one probe run.
func CheckHandler(s *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "missing name parameter",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		summary, err := s.CheckShared(ctx, name)
		switch {
		case errors.Is(err, ErrUnknownDependency):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": err.Error(),
			})
		case err != nil:
			writeJSON(w, http.StatusServiceUnavailable, summary)
		default:
			writeJSON(w, http.StatusOK, summary)
		}
	}
}

// HandlerConfig configures RegisterHandlers.
type HandlerConfig struct {
	// Verbose serves the JSON report on /health.
	Verbose bool

	// Guard wraps the /health and /health/check handlers, e.g. with bearer
	// token authentication. Optional.
	Guard func(http.Handler) http.Handler
}

// RegisterHandlers registers all health handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, s *Scheduler, cfg HandlerConfig) {
	guard := cfg.Guard
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}

	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(s.Registry()))
	mux.Handle("/health", guard(StatusHandler(s.Registry(), cfg.Verbose)))
	mux.Handle("/health/check", guard(CheckHandler(s)))
}

// MiddlewareConfig configures NewMiddleware.
type MiddlewareConfig struct {
	// Interval starts polling when positive.
	Interval time.Duration

	// Dependencies restricts polling to an explicit set; empty polls all.
	Dependencies []CheckEntry

	Sequential bool
	Schedule   Schedule

	// Bare serves only the status code instead of the JSON report.
	Bare bool
}

// NewMiddleware returns a handler serving the service's health, starting a
// poll loop on s first when cfg.Interval is set. The loop runs until ctx
// ends or s.Stop is called.
//
// The handler is StatusHandler: the JSON report, or the bare code with
// cfg.Bare, is served with 503 while a HARD dependency is down and 200
// otherwise.
func NewMiddleware(ctx context.Context, s *Scheduler, cfg MiddlewareConfig) (http.Handler, error) {
	if cfg.Interval > 0 {
		_, err := s.Poll(ctx, PollOptions{
			Interval:     cfg.Interval,
			Dependencies: cfg.Dependencies,
			All:          len(cfg.Dependencies) == 0,
			Sequential:   cfg.Sequential,
			Schedule:     cfg.Schedule,
		})
		if err != nil {
			return nil, err
		}
	}
	return StatusHandler(s.Registry(), !cfg.Bare), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
