package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/chanlog/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config [channel...]",
		Short: "Show the effective transcript settings",
		Long: `config prints the global transcript settings and the effective settings
for the defaults, every channel with an override and any channel named on the
command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.configPath)
			if err != nil {
				return &configError{err}
			}
			if err := cfg.Settings.Validate(); err != nil {
				return &configError{fmt.Errorf("invalid settings:\n%w", err)}
			}
			printSettings(cmd.OutOrStdout(), &cfg.Settings, args)
			return nil
		},
	}
}

func printSettings(w io.Writer, s *config.Settings, extra []string) {
	g := table.NewWriter()
	g.SetOutputMirror(w)
	g.SetStyle(table.StyleRounded)
	g.AppendHeader(table.Row{"Setting", "Value"})
	g.AppendRows([]table.Row{
		{"log dir", s.LogDir},
		{"flush", flushPolicy(s)},
		{"line timestamp", orNone(s.TimestampFormat)},
		{"command prefix", orNone(s.CommandPrefix)},
		{"operators", orNone(strings.Join(s.Operators, ", "))},
		{"directories", directories(s.Directories)},
	})
	g.Render()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Channel", "Enable", "Formats", "Timestamp", "Strip", "No-log prefix", "Rotate", "File stamp"})
	t.AppendRow(channelRow("(defaults)", s.Defaults))
	for _, ch := range channelNames(s, extra) {
		t.AppendRow(channelRow(ch, s.Channel(ch)))
	}
	t.Render()
}

func channelNames(s *config.Settings, extra []string) []string {
	seen := make(map[string]bool)
	var names []string
	for name := range s.Channels {
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range extra {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func channelRow(name string, cs config.ChannelSettings) table.Row {
	return table.Row{
		name,
		strconv.FormatBool(cs.Enable),
		strings.Join(cs.Formats, ", "),
		strconv.FormatBool(cs.Timestamp),
		strconv.FormatBool(cs.StripFormatting),
		orNone(cs.NoLogPrefix),
		strconv.FormatBool(cs.RotateLogs),
		orNone(cs.FilenameTimestamp),
	}
}

func flushPolicy(s *config.Settings) string {
	if s.FlushImmediately {
		return "every write"
	}
	return "every " + s.FlushInterval.String()
}

func directories(d config.Directories) string {
	if !d.Enabled {
		return "flat"
	}
	var parts []string
	if d.Network {
		parts = append(parts, "network")
	}
	if d.Channel {
		parts = append(parts, "channel")
	}
	if d.Timestamp {
		parts = append(parts, d.TimestampFormat)
	}
	if len(parts) == 0 {
		return "flat"
	}
	return strings.Join(parts, "/")
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
