package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jonwraymond/copacetic/config"
)

const validConfig = `
service:
  name: "orders"
  version: "1.4.0"

http:
  addr: "127.0.0.1:9000"
  verbose: true
  guard:
    api_keys: ["k3y"]

poll:
  interval: "5 seconds"
  schedule: "end"
  mode: "events"

concurrency: 4

backoff:
  constant: 3
  multiplier: 10

dependencies:
  - name: "payments"
    url: "http://payments.internal:8080/health"
    level: "hard"
    options:
      timeout: 1500
  - name: "cache"
    url: "redis://localhost:6379"
    type: "redis"
  - name: "heap"
    type: "memory"

wait:
  timeout: "2 minutes"
`

var _ = Describe("Config", func() {
	var tempDir string

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "copacetic.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "copacetic-config-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("COPACETIC_HTTP_ADDR")
		os.Unsetenv("COPACETIC_POLL_INTERVAL")
	})

	Describe("Load", func() {
		Context("with a valid config file", func() {
			var cfg *config.Config

			BeforeEach(func() {
				var err error
				cfg, err = config.Load(writeConfig(validConfig))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should record the file it read", func() {
				Expect(cfg.Source).To(HaveSuffix("copacetic.yaml"))
			})

			It("should parse human intervals", func() {
				Expect(cfg.Poll.Interval).To(Equal(5 * time.Second))
				Expect(cfg.Wait.Timeout).To(Equal(2 * time.Minute))
			})

			It("should read integer durations as milliseconds", func() {
				Expect(cfg.Backoff.Multiplier).To(Equal(10 * time.Millisecond))
				Expect(cfg.Backoff.Constant).To(Equal(3.0))
			})

			It("should parse dependencies in order", func() {
				Expect(cfg.Dependencies).To(HaveLen(3))
				Expect(cfg.Dependencies[0].Name).To(Equal("payments"))
				Expect(cfg.Dependencies[0].Type).To(Equal("http"))
				Expect(cfg.Dependencies[0].Options).To(HaveKeyWithValue("timeout", 1500))
				Expect(cfg.Dependencies[1].Type).To(Equal("redis"))
				Expect(cfg.Dependencies[2].Type).To(Equal("memory"))
			})

			It("should carry the guard and scheduler settings", func() {
				Expect(cfg.HTTP.Guard.APIKeys).To(ConsistOf("k3y"))
				Expect(cfg.HTTP.Verbose).To(BeTrue())
				Expect(cfg.Poll.Mode).To(Equal(config.ModeEvents))
				Expect(cfg.Concurrency).To(Equal(4))
			})

			It("should name the observer after the service", func() {
				Expect(cfg.Observe.ServiceName).To(Equal("orders"))
				Expect(cfg.Observe.Version).To(Equal("1.4.0"))
			})
		})

		Context("with environment variables", func() {
			It("should override file values", func() {
				os.Setenv("COPACETIC_HTTP_ADDR", ":9090")
				os.Setenv("COPACETIC_POLL_INTERVAL", "two minutes")

				cfg, err := config.Load(writeConfig(validConfig))
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.HTTP.Addr).To(Equal(":9090"))
				Expect(cfg.Poll.Interval).To(Equal(2 * time.Minute))
			})
		})

		Context("without a config file", func() {
			var cwd string

			BeforeEach(func() {
				var err error
				cwd, err = os.Getwd()
				Expect(err).NotTo(HaveOccurred())
				Expect(os.Chdir(tempDir)).To(Succeed())
			})

			AfterEach(func() {
				Expect(os.Chdir(cwd)).To(Succeed())
			})

			It("should use defaults when the search path is empty", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Source).To(BeEmpty())
				Expect(cfg.Service.Name).To(Equal("copacetic"))
				Expect(cfg.HTTP.Addr).To(Equal(":8080"))
				Expect(cfg.Poll.Interval).To(Equal(30 * time.Second))
				Expect(cfg.Poll.Schedule).To(Equal("start"))
				Expect(cfg.Dependencies).To(BeEmpty())
			})

			It("should fail when an explicit path is missing", func() {
				_, err := config.Load(filepath.Join(tempDir, "absent.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		DescribeTable("should reject invalid configuration",
			func(content string, field string) {
				_, err := config.Load(writeConfig(content))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(MatchRegexp("(?i)" + field))
			},
			Entry("duplicate dependency names", `
dependencies:
  - {name: db, type: memory}
  - {name: db, type: memory}
`, "dependencies"),
			Entry("unknown level", `
dependencies:
  - {name: db, type: memory, level: critical}
`, "level"),
			Entry("unknown probe type", `
dependencies:
  - {name: db, type: carrier-pigeon}
`, "type"),
			Entry("http dependency without url", `
dependencies:
  - {name: api}
`, "url"),
			Entry("non-http scheme for an http probe", `
dependencies:
  - {name: api, url: "ftp://files.internal"}
`, "url"),
			Entry("unknown schedule", `
poll:
  schedule: "noon"
`, "schedule"),
			Entry("address without port", `
http:
  addr: "localhost"
`, "addr"),
			Entry("zero interval", `
poll:
  interval: 0
`, "interval"),
			Entry("invalid tracing exporter", `
observe:
  tracing:
    enabled: true
    exporter: zipkin
`, "observe"),
			Entry("negative backoff constant", `
backoff:
  constant: -2
`, "constant"),
		)

		It("should accept a backoff constant below one", func() {
			cfg, err := config.Load(writeConfig(`
backoff:
  constant: 0.5
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Backoff.Constant).To(Equal(0.5))
		})

		It("should accept urls holding secret references", func() {
			_, err := config.Load(writeConfig(`
dependencies:
  - {name: api, url: "https://${API_HOST}/health"}
`))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
