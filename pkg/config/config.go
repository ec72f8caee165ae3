// Package config contains the serialisable configuration of the wait/notify
// demonstration. It can be populated from YAML. The zero value of every
// field not given in a document is replaced by its default.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/waitnotify/pkg/processing"
)

type Config struct {
	// Processors limits the number of tasks executing in parallel,
	// zero means no limit.
	Processors int `yaml:"processors"`
	// JoinTimeout bounds the join of the waiting task and the final
	// wait for all tasks. It must be positive.
	JoinTimeout time.Duration `yaml:"joinTimeout"`
	// Priorities maps task names (waiter, notifier, runner) to priorities.
	Priorities map[string]int `yaml:"priorities,omitempty"`
	Log        LogConfig      `yaml:"log"`
	Trace      TraceConfig    `yaml:"trace"`
	Report     bool           `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Output is the file the spans are written to, standard output if empty.
	Output string `yaml:"output,omitempty"`
}

// DefaultConfig returns a Config with a one second join timeout, the
// default priority for all tasks and no processor limit.
func DefaultConfig() *Config {
	return &Config{
		Processors:  0,
		JoinTimeout: time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file. An empty path yields the
// default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Processors < 0 {
		return fmt.Errorf("processors must be >= 0")
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("joinTimeout must be > 0")
	}
	for n, p := range c.Priorities {
		if p < processing.MinPriority || p > processing.MaxPriority {
			return fmt.Errorf("priority of %s: %w: %d", n, processing.ErrInvalidPriority, p)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, found %q", c.Log.Format)
	}
	return nil
}

// Priority returns the configured priority for a task, or the default priority.
func (c *Config) Priority(task string) int {
	if p, ok := c.Priorities[task]; ok {
		return p
	}
	return processing.NormPriority
}

// Logger creates a logger configured according to the log settings.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
