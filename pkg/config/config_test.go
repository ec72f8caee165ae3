package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/mandelsoft/waitnotify/pkg/config"
	"github.com/mandelsoft/waitnotify/pkg/processing"
)

var _ = Describe("config", func() {
	It("provides defaults", func() {
		cfg, err := config.Load("")
		Expect(err).To(Succeed())
		Expect(cfg).To(Equal(config.DefaultConfig()))
		Expect(cfg.JoinTimeout).To(Equal(time.Second))
		Expect(cfg.Priority("waiter")).To(Equal(processing.NormPriority))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("parses documents", func() {
		cfg, err := config.Parse([]byte(`
processors: 1
joinTimeout: 250ms
priorities:
  waiter: 9
log:
  level: debug
  format: json
trace:
  enabled: true
report: true
`))
		Expect(err).To(Succeed())
		Expect(cfg.Processors).To(Equal(1))
		Expect(cfg.JoinTimeout).To(Equal(250 * time.Millisecond))
		Expect(cfg.Priority("waiter")).To(Equal(9))
		Expect(cfg.Priority("notifier")).To(Equal(processing.NormPriority))
		Expect(cfg.Trace.Enabled).To(BeTrue())
		Expect(cfg.Report).To(BeTrue())

		log := cfg.Logger()
		Expect(log.GetLevel()).To(Equal(logrus.DebugLevel))
		Expect(log.Formatter).To(BeAssignableToTypeOf(&logrus.JSONFormatter{}))
	})

	It("keeps defaults for missing fields", func() {
		cfg, err := config.Parse([]byte("processors: 2\n"))
		Expect(err).To(Succeed())
		Expect(cfg.Processors).To(Equal(2))
		Expect(cfg.JoinTimeout).To(Equal(time.Second))
		Expect(cfg.Log.Level).To(Equal("info"))
	})

	DescribeTable("rejects invalid settings",
		func(doc string, msg string) {
			_, err := config.Parse([]byte(doc))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("processors", "processors: -1\n", "processors"),
		Entry("timeout", "joinTimeout: -1s\n", "joinTimeout"),
		Entry("unbounded timeout", "joinTimeout: 0s\n", "joinTimeout must be > 0"),
		Entry("priority", "priorities:\n  waiter: 11\n", "invalid priority"),
		Entry("level", "log:\n  level: loud\n", "log.level"),
		Entry("format", "log:\n  format: xml\n", "log.format"),
		Entry("syntax", "processors: [\n", "yaml"),
	)

	It("loads files", func() {
		dir, err := os.MkdirTemp("", "config")
		Expect(err).To(Succeed())
		DeferCleanup(os.RemoveAll, dir)
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte("processors: 3\n"), 0o644)).To(Succeed())
		cfg, err := config.Load(path)
		Expect(err).To(Succeed())
		Expect(cfg.Processors).To(Equal(3))

		_, err = config.Load(filepath.Join(dir, "missing.yaml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
