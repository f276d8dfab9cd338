package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/board-reminder/internal/app"
	"github.com/Adda-Baaj/board-reminder/internal/config"
	"github.com/Adda-Baaj/board-reminder/internal/logger"
)

type flags struct {
	boards       []string
	keywords     []string
	receiver     string
	watchdog     int
	numMeta      int
	interval     int64
	channelsFile string
	sourcesFile  string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Notify when new board posts match keywords",
		Long: `reminder polls one or more boards and sends a notification for every new
post whose title contains one of the keywords given for that board.

Each -b is paired with the -k at the same position; -k takes a
comma-separated keyword list. Without -u every message is broadcast.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.boards, "board", "b", nil, "board to watch, optionally prefixed with a source id (repeatable)")
	fl.StringArrayVarP(&f.keywords, "keywords", "k", nil, "comma-separated keywords for the board at the same position (repeatable)")
	fl.StringVarP(&f.receiver, "receiver", "u", "", "recipient key from the channels client_list; empty broadcasts")
	fl.IntVarP(&f.watchdog, "watchdog", "w", 0, "cycles between watchdog pings (0 disables)")
	fl.IntVarP(&f.numMeta, "num-meta", "n", 0, "number of newest items fetched per cycle")
	fl.Int64VarP(&f.interval, "interval", "i", 0, "seconds between polls")
	fl.StringVar(&f.channelsFile, "channels-file", "", "path to the channels file")
	fl.StringVar(&f.sourcesFile, "sources-file", "", "path to the sources file")
	_ = cmd.MarkFlagRequired("board")

	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, cfg, f); err != nil {
		return err
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("reminder starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminder, err := app.NewReminder(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize reminder", "error", err)
		return err
	}

	notifySystemd(daemon.SdNotifyReady)
	defer notifySystemd(daemon.SdNotifyStopping)

	if err := reminder.Run(ctx, parseKeywordLists(f.keywords), f.boards); err != nil {
		return fmt.Errorf("reminder run: %w", err)
	}
	return nil
}

// applyFlags overrides loaded config values with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) error {
	fl := cmd.Flags()
	if fl.Changed("receiver") {
		cfg.Receiver = strings.TrimSpace(f.receiver)
	}
	if fl.Changed("watchdog") {
		cfg.WatchdogInterval = f.watchdog
	}
	if fl.Changed("num-meta") {
		cfg.NumMeta = f.numMeta
	}
	if fl.Changed("interval") {
		cfg.PollIntervalSeconds = f.interval
	}
	if fl.Changed("channels-file") {
		cfg.ChannelsFile = f.channelsFile
	}
	if fl.Changed("sources-file") {
		cfg.SourcesFile = f.sourcesFile
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// parseKeywordLists splits every -k value on commas.
func parseKeywordLists(values []string) [][]string {
	out := make([][]string, 0, len(values))
	for _, v := range values {
		var kws []string
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		out = append(out, kws)
	}
	return out
}

func notifySystemd(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.WarnObj("systemd notify failed", "systemd", map[string]any{
			"state": state,
			"error": err.Error(),
		})
	}
}
