package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
	"github.com/crimson-sun/chanlog/internal/engine"
	"github.com/crimson-sun/chanlog/internal/logging"
	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
	"github.com/crimson-sun/chanlog/internal/output/async"
	"github.com/crimson-sun/chanlog/internal/output/file"
	"github.com/crimson-sun/chanlog/internal/output/multi"
	"github.com/crimson-sun/chanlog/internal/output/stdout"
	"github.com/crimson-sun/chanlog/internal/output/webhook"
	"github.com/crimson-sun/chanlog/internal/pipeline"
)

// app is one wired chanlog instance: settings, log store, engine and the
// pipeline feeding it from the configured networks.
type app struct {
	cfg     config.Config
	store   *config.Store
	engine  *engine.Engine
	pipe    *pipeline.Pipeline
	sources []pipeline.Source
}

// initLogging installs the diagnostic logger described by cfg.
func initLogging(cfg config.Config) func() {
	return logging.Init(logging.Options{
		Level: logging.ParseLevel(cfg.Logging.Level),
		JSON:  cfg.Output.Echo,
		File:  cfg.Logging.File,
	})
}

// newApp wires the components for cfg. Echoed records go to echo.
func newApp(cfg config.Config, echo io.Writer, jsonEcho bool) (*app, error) {
	store := config.NewStore(cfg.Settings)

	outs := []output.Output{file.New(store)}
	if cfg.Output.Echo {
		sopts := []stdout.Option{stdout.WithWriter(echo)}
		if jsonEcho {
			sopts = append(sopts, stdout.WithJSON(false))
		}
		outs = append(outs, stdout.New(sopts...))
	}
	if wh := cfg.Output.Webhook; wh.URL != "" {
		wopts := []webhook.Option{
			webhook.WithHeaders(wh.Headers),
			webhook.WithBatchSize(wh.BatchSize),
			webhook.WithFlushInterval(wh.FlushInterval),
		}
		if formats := parseFormats(wh.Formats); len(formats) > 0 {
			wopts = append(wopts, webhook.WithFormats(formats...))
		}
		outs = append(outs, async.New(webhook.New(wh.URL, wopts...), async.WithDropOnFull()))
	}
	out := outs[0]
	if len(outs) > 1 {
		out = multi.New(outs...)
	}

	eng := engine.New(store, out)
	a := &app{
		cfg:    cfg,
		store:  store,
		engine: eng,
		pipe:   pipeline.New(eng, store),
	}
	for _, n := range cfg.Networks {
		ctor, err := connector.Get(n.Provider)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}
		a.sources = append(a.sources, pipeline.Source{Connector: ctor(), Network: n})
	}
	return a, nil
}

func parseFormats(names []string) []model.Format {
	var out []model.Format
	for _, name := range names {
		if f, err := model.ParseFormat(name); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// close finalizes every open log, giving up after the shutdown timeout.
func (a *app) close() error {
	done := make(chan error, 1)
	go func() { done <- a.engine.Close() }()

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		return <-done
	}
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		slog.Error("shutdown timed out, some logs may not be finalized", "timeout", timeout)
		return fmt.Errorf("shutdown: logs not closed within %v", timeout)
	}
}
