package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
	"github.com/Adda-Baaj/board-reminder/internal/logger"
)

const (
	DefaultNumMeta          = 15
	DefaultWatchdogInterval = 30
	DefaultPollInterval     = 60 * time.Second
)

// Config describes one board to watch.
type Config struct {
	Board    string
	Keywords []string
	// Receiver is the recipient key for every message; empty broadcasts.
	Receiver string
	// NumMeta is the number of newest items fetched per cycle.
	NumMeta int
	// WatchdogInterval is the number of cycles between watchdog pings; <= 0 disables them.
	WatchdogInterval int
	PollInterval     time.Duration
	// MaxConsecutiveFailures stops Run after that many failed cycles in a row; 0 never gives up.
	MaxConsecutiveFailures int
}

// Report summarizes one cycle.
type Report struct {
	Fetched      int
	Reported     []domain.Item
	WatchdogSent bool
}

// Watcher polls a single board and reports new items that match its keywords.
// A Watcher is driven by one goroutine; its state is not safe for concurrent use.
type Watcher struct {
	board            string
	keywords         []string
	receiver         string
	numMeta          int
	watchdogInterval int
	pollInterval     time.Duration
	maxFailures      int

	fetcher  MetadataFetcher
	notifier Notifier
	log      logger.Logger

	highWaterMark       int64
	watchdogCount       int
	consecutiveFailures int
}

// New validates cfg and returns a watcher with a zero high-water mark.
func New(cfg Config, fetcher MetadataFetcher, notifier Notifier, log logger.Logger) (*Watcher, error) {
	board := strings.TrimSpace(cfg.Board)
	if board == "" {
		return nil, errors.New("board is required")
	}
	if fetcher == nil {
		return nil, errors.New("metadata fetcher is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.NumMeta < 0 || cfg.PollInterval < 0 || cfg.MaxConsecutiveFailures < 0 {
		return nil, fmt.Errorf("board %s: num meta, poll interval and failure limit must not be negative", board)
	}

	numMeta := cfg.NumMeta
	if numMeta == 0 {
		numMeta = DefaultNumMeta
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = DefaultPollInterval
	}

	return &Watcher{
		board:            board,
		keywords:         NormalizeKeywords(cfg.Keywords),
		receiver:         strings.TrimSpace(cfg.Receiver),
		numMeta:          numMeta,
		watchdogInterval: cfg.WatchdogInterval,
		pollInterval:     poll,
		maxFailures:      cfg.MaxConsecutiveFailures,
		fetcher:          fetcher,
		notifier:         notifier,
		log:              logger.Ensure(log),
	}, nil
}

// Board returns the watched board id.
func (w *Watcher) Board() string { return w.board }

// HighWaterMark returns the largest item id reported so far.
func (w *Watcher) HighWaterMark() int64 { return w.highWaterMark }

// WatchdogCount returns the cycles elapsed since the last watchdog ping.
func (w *Watcher) WatchdogCount() int { return w.watchdogCount }

// Keywords returns the normalized keyword set.
func (w *Watcher) Keywords() []string {
	out := make([]string, len(w.keywords))
	copy(out, w.keywords)
	return out
}

// Run announces the watcher, probes the board, then polls until ctx is
// cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.send(ctx, startMessage(w.board, w.keywords), "start")
	w.probe(ctx)

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := w.Cycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.consecutiveFailures++
			if w.maxFailures > 0 && w.consecutiveFailures >= w.maxFailures {
				return fmt.Errorf("%w: board %s failed %d cycles: %w", ErrTooManyFailures, w.board, w.consecutiveFailures, err)
			}
		} else {
			w.consecutiveFailures = 0
		}

		timer.Reset(w.pollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Cycle runs one poll iteration: fetch, match, report, advance the high-water
// mark and the watchdog. The watchdog advances even when the fetch fails.
func (w *Watcher) Cycle(ctx context.Context) (Report, error) {
	var rep Report

	items, err := w.fetch(ctx)
	if err == nil {
		rep.Fetched = len(items)
		rep.Reported = w.report(ctx, items)
	}

	rep.WatchdogSent = w.tickWatchdog(ctx)
	return rep, err
}

func (w *Watcher) fetch(ctx context.Context) ([]domain.Item, error) {
	items, err := w.fetcher.FetchMetadata(ctx, w.board, w.numMeta)
	if err != nil {
		ferr := &FetchError{Board: w.board, Err: err}
		if ctx.Err() == nil {
			w.log.WarnObj("board fetch failed", "watcher_fetch_error", map[string]any{
				"board": w.board,
				"error": err.Error(),
			})
		}
		return nil, ferr
	}
	if len(items) != w.numMeta {
		ierr := &FetchInvariantError{Board: w.board, Want: w.numMeta, Got: len(items)}
		w.log.ErrorObj("board returned unexpected item count", "watcher_invariant_error", map[string]any{
			"board": w.board,
			"want":  w.numMeta,
			"got":   len(items),
		})
		return nil, ierr
	}
	return items, nil
}

// report notifies every new matching item in fetch order and returns them.
func (w *Watcher) report(ctx context.Context, items []domain.Item) []domain.Item {
	var reported []domain.Item
	maxID := w.highWaterMark

	for _, item := range items {
		if !Matches(item, w.keywords) || item.ID <= w.highWaterMark {
			continue
		}

		w.log.InfoObj("keyword match", "watcher_match", map[string]any{
			"board": w.board,
			"id":    item.ID,
			"date":  item.Date,
			"title": item.Title,
		})
		w.send(ctx, FormatItem(w.board, item), "item")

		reported = append(reported, item)
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	w.highWaterMark = maxID
	return reported
}

func (w *Watcher) tickWatchdog(ctx context.Context) bool {
	if w.watchdogInterval <= 0 {
		return false
	}
	w.watchdogCount++
	if w.watchdogCount < w.watchdogInterval {
		return false
	}

	w.watchdogCount = 0
	w.log.InfoObj("watchdog ping", "watcher_watchdog", map[string]any{
		"board":           w.board,
		"high_water_mark": w.highWaterMark,
	})
	w.send(ctx, watchdogMessage(w.board), "watchdog")
	return true
}

// probe checks connectivity once without touching watcher state.
func (w *Watcher) probe(ctx context.Context) {
	items, err := w.fetcher.FetchMetadata(ctx, w.board, w.numMeta)
	if err != nil {
		if ctx.Err() == nil {
			w.log.WarnObj("board probe failed", "watcher_probe", map[string]any{
				"board": w.board,
				"error": err.Error(),
			})
		}
		return
	}
	w.log.DebugObj("board probe succeeded", "watcher_probe", map[string]any{
		"board": w.board,
		"items": len(items),
	})
}

func (w *Watcher) send(ctx context.Context, text, kind string) {
	if err := w.notifier.Notify(ctx, text, w.receiver); err != nil {
		w.log.ErrorObj("notification dispatch failed", "watcher_dispatch_error", map[string]any{
			"board":    w.board,
			"kind":     kind,
			"receiver": w.receiver,
			"error":    err.Error(),
		})
	}
}
