// Package engine runs one board watcher per configured board and owns their
// lifetime.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Adda-Baaj/board-reminder/internal/logger"
	"github.com/Adda-Baaj/board-reminder/internal/watcher"
)

// TerminatedMessage is sent once after every watcher has stopped.
const TerminatedMessage = "Service terminated."

const defaultShutdownTimeout = 10 * time.Second

// Options apply to every watcher the engine starts.
type Options struct {
	PollInterval           time.Duration
	WatchdogInterval       int
	NumMeta                int
	MaxConsecutiveFailures int
	// ShutdownTimeout bounds delivery of the terminated message.
	ShutdownTimeout time.Duration
}

// ConfigurationError is returned before any watcher starts.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Engine polls several boards concurrently through a shared fetcher and notifier.
type Engine struct {
	fetcher  watcher.MetadataFetcher
	notifier watcher.Notifier
	log      logger.Logger
	opts     Options
}

// New returns an engine; zero Options fields take the watcher defaults.
func New(fetcher watcher.MetadataFetcher, notifier watcher.Notifier, log logger.Logger, opts Options) *Engine {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Engine{
		fetcher:  fetcher,
		notifier: notifier,
		log:      logger.Ensure(log),
		opts:     opts,
	}
}

// Run starts one watcher per board, pairing boards[i] with keywordLists[i],
// and blocks until ctx is cancelled and every watcher has returned. It then
// sends TerminatedMessage to receiver and returns the joined watcher errors.
func (e *Engine) Run(ctx context.Context, keywordLists [][]string, boards []string, receiver string) error {
	watchers, err := e.build(keywordLists, boards, receiver)
	if err != nil {
		e.log.ErrorObj("engine configuration rejected", "engine_config_error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	e.log.InfoObj("engine starting", "engine_start", map[string]any{
		"boards":            boards,
		"receiver":          receiver,
		"poll_interval":     e.opts.PollInterval.String(),
		"watchdog_interval": e.opts.WatchdogInterval,
		"num_meta":          e.opts.NumMeta,
	})

	p := pool.New().WithErrors().WithContext(ctx)
	for _, w := range watchers {
		p.Go(func(ctx context.Context) error {
			return e.runWatcher(ctx, w)
		})
	}
	runErr := p.Wait()

	e.terminate(ctx, receiver)

	e.log.InfoObj("engine stopped", "engine_stop", map[string]any{
		"boards": len(watchers),
		"failed": runErr != nil,
	})
	return runErr
}

func (e *Engine) build(keywordLists [][]string, boards []string, receiver string) ([]*watcher.Watcher, error) {
	if len(keywordLists) != len(boards) {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("%d keyword lists for %d boards", len(keywordLists), len(boards)),
		}
	}
	if len(boards) == 0 {
		return nil, &ConfigurationError{Reason: "no boards configured"}
	}

	watchers := make([]*watcher.Watcher, 0, len(boards))
	for i, board := range boards {
		if strings.TrimSpace(board) == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("board %d has an empty id", i)}
		}
		w, err := watcher.New(watcher.Config{
			Board:                  board,
			Keywords:               keywordLists[i],
			Receiver:               receiver,
			NumMeta:                e.opts.NumMeta,
			WatchdogInterval:       e.opts.WatchdogInterval,
			PollInterval:           e.opts.PollInterval,
			MaxConsecutiveFailures: e.opts.MaxConsecutiveFailures,
		}, e.fetcher, e.notifier, e.log)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("board %s", board), Err: err}
		}
		watchers = append(watchers, w)
	}
	return watchers, nil
}

// runWatcher runs w and converts a panic into an error so one board cannot
// take down the others.
func (e *Engine) runWatcher(ctx context.Context, w *watcher.Watcher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watcher %s panicked: %v", w.Board(), r)
			e.log.ErrorObj("watcher panicked", "engine_watcher_panic", map[string]any{
				"board": w.Board(),
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
		}
	}()

	if err := w.Run(ctx); err != nil {
		e.log.ErrorObj("watcher stopped with error", "engine_watcher_error", map[string]any{
			"board": w.Board(),
			"error": err.Error(),
		})
		return fmt.Errorf("watcher %s: %w", w.Board(), err)
	}
	return nil
}

func (e *Engine) terminate(ctx context.Context, receiver string) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.ShutdownTimeout)
	defer cancel()

	if err := e.notifier.Notify(sctx, TerminatedMessage, receiver); err != nil {
		e.log.ErrorObj("terminated message dispatch failed", "engine_dispatch_error", map[string]any{
			"receiver": receiver,
			"error":    err.Error(),
		})
	}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
