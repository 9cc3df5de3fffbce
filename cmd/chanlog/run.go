package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/chanlog/internal/config"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the configured networks and log their channels",
		Long: `run streams every configured network until interrupted. Replay
networks stop on their own once the recorded file is exhausted. When a config
file is in use, transcript settings are reloaded whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, "stream", nil)
			if err != nil {
				return err
			}
			defer initLogging(cfg)()

			a, err := newApp(cfg, cmd.OutOrStdout(), opts.json)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

// run streams every source and, when a config file is in use, watches it.
// It returns once the sources are exhausted or ctx is cancelled, after all
// logs have been finalized.
func (a *app) run(ctx context.Context) error {
	slog.Info("chanlog starting",
		"version", config.Version,
		"networks", len(a.sources),
		"log_dir", a.cfg.Settings.LogDir,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := a.pipe.Stream(gctx, a.sources...)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if a.cfg.ConfigFile != "" {
		g.Go(func() error {
			return config.Watch(gctx, a.cfg.ConfigFile, config.Load(), a.store)
		})
	}

	err := g.Wait()
	if cerr := a.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	slog.Info("chanlog stopped")
	return err
}
