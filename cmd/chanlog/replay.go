package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
)

type replayOptions struct {
	network string
	nick    string
	start   string
	end     string
	limit   int
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Log a window of recorded IRC traffic",
		Long: `replay reads recorded IRC lines (one raw protocol line per line, with
optional server-time tags) and writes the transcripts they produce. Without a
file argument every configured network is queried; a file argument replaces
them with a single replay network.

Roster changes outside the --start/--end window still update channel
membership, so quits inside the window are attributed correctly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.params()
			if err != nil {
				return &configError{err}
			}
			var adjust func(*config.Config)
			if len(args) == 1 {
				adjust = func(cfg *config.Config) {
					cfg.Networks = []config.NetworkConfig{{
						Provider:   "replay",
						Name:       opts.network,
						Nick:       opts.nick,
						ReplayFile: args[0],
					}}
				}
			}
			cfg, err := loadConfig(root, "query", adjust)
			if err != nil {
				return err
			}
			defer initLogging(cfg)()

			a, err := newApp(cfg, cmd.OutOrStdout(), root.json)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var errs []error
			for _, src := range a.sources {
				slog.Info("replaying", "network", src.Network.Name, "file", src.Network.ReplayFile)
				if err := a.pipe.Query(ctx, src, params); err != nil {
					errs = append(errs, fmt.Errorf("network %s: %w", src.Network.Name, err))
				}
			}
			errs = append(errs, a.close())
			return errors.Join(errs...)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.network, "network", "default", "network name used for a file argument")
	f.StringVar(&opts.nick, "nick", "chanlog", "own nick in the recording, used with a file argument")
	f.StringVar(&opts.start, "start", "", "first message time to log (RFC 3339)")
	f.StringVar(&opts.end, "end", "", "log messages strictly before this time (RFC 3339)")
	f.IntVar(&opts.limit, "limit", 0, "maximum number of messages to log (0 for no limit)")
	return cmd
}

func (o *replayOptions) params() (connector.QueryParams, error) {
	var p connector.QueryParams
	var err error
	if p.Start, err = parseTime("start", o.start); err != nil {
		return p, err
	}
	if p.End, err = parseTime("end", o.end); err != nil {
		return p, err
	}
	if !p.Start.IsZero() && !p.End.IsZero() && !p.End.After(p.Start) {
		return p, fmt.Errorf("--end must be after --start")
	}
	if o.limit < 0 {
		return p, fmt.Errorf("--limit must be >= 0, got %d", o.limit)
	}
	p.Limit = o.limit
	return p, nil
}

func parseTime(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return t, nil
}
