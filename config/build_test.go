package config_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonwraymond/copacetic/config"
	"github.com/jonwraymond/copacetic/health"
)

var _ = Describe("Build", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		cfg    *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		cfg = &config.Config{
			Service: config.ServiceConfig{Name: "orders"},
			Backoff: config.BackoffConfig{Constant: 2, Multiplier: time.Millisecond},
			Poll:    config.PollConfig{Interval: time.Second, Schedule: "end"},
			Dependencies: []config.DependencyConfig{
				{Name: "api", URL: server.URL, Level: "HARD", Type: "http", Options: map[string]any{"timeout": "1 second"}},
				{Name: "heap", Type: "memory"},
			},
		}
	})

	AfterEach(func() {
		server.Close()
		os.Unsetenv("COPACETIC_TEST_TOKEN")
	})

	Describe("BuildRegistry", func() {
		It("should register every dependency in order", func() {
			reg, err := config.BuildRegistry(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(reg.Close, ctx)

			Expect(reg.Name()).To(Equal("orders"))
			Expect(reg.Names()).To(Equal([]string{"api", "heap"}))

			api, ok := reg.Get("api")
			Expect(ok).To(BeTrue())
			Expect(api.Level()).To(Equal(health.LevelHard))

			heap, _ := reg.Get("heap")
			Expect(heap.Level()).To(Equal(health.LevelSoft))
		})

		It("should build probes that check the configured targets", func() {
			reg, err := config.BuildRegistry(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(reg.Close, ctx)

			summaries, err := health.NewScheduler(reg, cfg.SchedulerOptions()...).CheckAll(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(summaries).To(HaveLen(2))
			Expect(summaries[0].Healthy).To(BeTrue())
			Expect(reg.IsHealthy()).To(BeTrue())
		})

		It("should reject unknown probe options", func() {
			cfg.Dependencies[0].Options = map[string]any{"retries": 3}
			_, err := config.BuildRegistry(ctx, cfg)
			Expect(err).To(MatchError(ContainSubstring(`"api"`)))
		})
	})

	Describe("BackoffFactory", func() {
		It("should create independent exponential policies", func() {
			factory := cfg.BackoffFactory()
			a, err := factory()
			Expect(err).NotTo(HaveOccurred())
			b, err := factory()
			Expect(err).NotTo(HaveOccurred())

			Expect(a).NotTo(BeIdenticalTo(b))
			Expect(a.Strategy().Interval(3)).To(Equal(8 * time.Millisecond))
		})
	})

	Describe("ResolveSecrets", func() {
		It("should resolve urls, options and guard credentials", func() {
			os.Setenv("COPACETIC_TEST_TOKEN", "hunter2")
			dir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "jwt"), []byte("signing-key\n"), 0o600)).To(Succeed())

			cfg.Secrets.Providers = map[string]map[string]any{"file": {"dir": dir}}
			cfg.Dependencies[0].URL = server.URL + "/health?token=${COPACETIC_TEST_TOKEN}"
			cfg.Dependencies[0].Options = map[string]any{
				"header": map[string]any{"Authorization": "Bearer secretref:env:COPACETIC_TEST_TOKEN"},
			}
			cfg.HTTP.Guard.JWTSecret = "secretref:file:jwt"

			Expect(cfg.ResolveSecrets(ctx)).To(Succeed())
			Expect(cfg.Dependencies[0].URL).To(HaveSuffix("token=hunter2"))
			Expect(cfg.Dependencies[0].Options["header"]).To(HaveKeyWithValue("Authorization", "Bearer hunter2"))
			Expect(cfg.HTTP.Guard.JWTSecret).To(Equal("signing-key"))
		})

		It("should fail on a missing file secret", func() {
			cfg.Secrets.Providers = map[string]map[string]any{"file": {"dir": GinkgoT().TempDir()}}
			cfg.HTTP.Guard.JWTSecret = "secretref:file:absent"
			Expect(cfg.ResolveSecrets(ctx)).NotTo(Succeed())
		})
	})

	Describe("PollOptions", func() {
		It("should poll every dependency on the configured schedule", func() {
			opts, err := cfg.PollOptions()
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.All).To(BeTrue())
			Expect(opts.Interval).To(Equal(time.Second))
			Expect(opts.Schedule).To(Equal(health.ScheduleEnd))
		})

		It("should reject an unknown schedule", func() {
			cfg.Poll.Schedule = "noon"
			_, err := cfg.PollOptions()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("WaitOptions", func() {
		It("should default to every dependency", func() {
			cfg.Wait.MaxDelay = time.Second
			opts := cfg.WaitOptions()
			Expect(opts.Dependencies).To(Equal([]health.CheckEntry{
				{Name: "api", MaxDelay: time.Second},
				{Name: "heap", MaxDelay: time.Second},
			}))
		})

		It("should restrict to the named dependencies", func() {
			opts := cfg.WaitOptions("heap")
			Expect(opts.Dependencies).To(HaveLen(1))
			Expect(opts.Dependencies[0].Name).To(Equal("heap"))
		})
	})
})
