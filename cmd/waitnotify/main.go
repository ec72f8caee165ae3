package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/waitnotify/pkg/config"
	"github.com/mandelsoft/waitnotify/pkg/demo"
	"github.com/mandelsoft/waitnotify/pkg/processing"
	"github.com/mandelsoft/waitnotify/pkg/tracing"
)

const version = "0.1.0"

func main() {
	path := flag.String("config", "", "YAML configuration file")
	report := flag.Bool("report", false, "print the YAML run report")
	flag.Parse()

	if err := run(*path, *report); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, report bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.Report = cfg.Report || report
	log := cfg.Logger()

	runID := uuid.New().String()
	opts := []processing.Option{processing.WithID(runID), processing.WithLogger(log)}

	if cfg.Trace.Enabled {
		var w io.Writer = os.Stdout
		if cfg.Trace.Output != "" {
			f, err := os.Create(cfg.Trace.Output)
			if err != nil {
				return fmt.Errorf("trace output: %w", err)
			}
			defer f.Close()
			w = f
		}
		tp, err := tracing.NewProvider("waitnotify", version, w)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.WithError(err).Warn("tracer shutdown failed")
			}
		}()
		opts = append(opts, processing.WithObserver(tracing.NewObserver(tp, runID)))
	}

	printer := func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
	r, err := demo.Run(cfg, printer, opts...)
	if err != nil {
		return err
	}
	if !r.Joined {
		log.WithField("state", r.FinalState).Warn("waiter did not terminate within join timeout")
	}
	if cfg.Report {
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	}
	return nil
}
