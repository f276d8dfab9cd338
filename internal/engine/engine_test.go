package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
	"github.com/Adda-Baaj/board-reminder/internal/watcher"
)

type boardFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	items   map[string][]domain.Item
	failing map[string]error
	panicky map[string]bool
}

func (f *boardFetcher) FetchMetadata(_ context.Context, board string, _ int) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[board]++
	if f.panicky[board] {
		panic("parser blew up")
	}
	if err := f.failing[board]; err != nil {
		return nil, err
	}
	return f.items[board], nil
}

func (f *boardFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(_ context.Context, text, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *recordingNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func (n *recordingNotifier) count(text string) int {
	c := 0
	for _, s := range n.texts() {
		if s == text {
			c++
		}
	}
	return c
}

func TestRunRejectsMismatchedLengthsBeforeStarting(t *testing.T) {
	f := &boardFetcher{}
	n := &recordingNotifier{}
	e := New(f, n, nil, Options{})

	err := e.Run(context.Background(), [][]string{{"a"}, {"b"}}, []string{"Test"}, "")

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, IsConfigurationError(err))
	assert.Zero(t, f.totalCalls())
	assert.Empty(t, n.texts())
}

func TestRunRejectsEmptyBoards(t *testing.T) {
	e := New(&boardFetcher{}, &recordingNotifier{}, nil, Options{})

	assert.True(t, IsConfigurationError(e.Run(context.Background(), nil, nil, "")))
	assert.True(t, IsConfigurationError(e.Run(context.Background(), [][]string{{"a"}}, []string{" "}, "")))
}

func TestRunStopsAllWatchersAndSendsTerminatedOnce(t *testing.T) {
	f := &boardFetcher{items: map[string][]domain.Item{
		"Alpha": {{ID: 1, Title: "sale", Author: "a"}},
		"Beta":  {{ID: 2, Title: "free", Author: "b"}},
	}}
	n := &recordingNotifier{}
	e := New(f, n, nil, Options{NumMeta: 1, PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, [][]string{{"sale"}, {"free"}}, []string{"Alpha", "Beta"}, "")
	}()

	// Two start messages and two matches.
	require.Eventually(t, func() bool { return len(n.texts()) >= 4 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	texts := n.texts()
	assert.Equal(t, 1, n.count(TerminatedMessage))
	assert.Equal(t, TerminatedMessage, texts[len(texts)-1])
}

func TestRunCollectsWatcherErrorsWithoutStoppingOthers(t *testing.T) {
	boom := errors.New("boom")
	f := &boardFetcher{
		items:   map[string][]domain.Item{"Healthy": {{ID: 1, Title: "x", Author: "a"}}},
		failing: map[string]error{"Broken": boom},
		panicky: map[string]bool{"Crashy": true},
	}
	n := &recordingNotifier{}
	e := New(f, n, nil, Options{NumMeta: 1, PollInterval: time.Millisecond, MaxConsecutiveFailures: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, [][]string{{"x"}, {"x"}, {"x"}}, []string{"Healthy", "Broken", "Crashy"}, "ops")
	}()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.calls["Healthy"] >= 5
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	var err error
	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, watcher.ErrTooManyFailures)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "watcher Crashy panicked")
	assert.Equal(t, 1, n.count(TerminatedMessage))
}
