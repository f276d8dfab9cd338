package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/board-reminder/internal/config"
	"github.com/Adda-Baaj/board-reminder/internal/engine"
	"github.com/Adda-Baaj/board-reminder/pkg/channels"
)

const testIndex = `<html><body>
<div class="btn-group btn-group-paging"><a class="btn wide">最舊</a><a class="btn wide disabled">&lsaquo; 上頁</a></div>
<div class="r-list-container action-bar-margin bbs-screen">
<div class="r-ent"><div class="title"><a href="/bbs/Test/M.101.A.AAA.html">[販售] iPhone 15</a></div>
<div class="meta"><div class="author">alice</div><div class="date"> 1/02</div><div class="mark"></div></div></div>
<div class="r-ent"><div class="title"><a href="/bbs/Test/M.102.A.BBB.html">[閒聊] weather</a></div>
<div class="meta"><div class="author">bob</div><div class="date"> 1/02</div><div class="mark"></div></div></div>
</div></body></html>`

type envelopeSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *envelopeSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var env channels.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.texts = append(s.texts, env.Text)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *envelopeSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T, boardURL, sinkURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sources := writeFile(t, dir, "sources.yaml", fmt.Sprintf(`
sources:
  - id: ptt
    type: ptt
    base_url: %s
`, boardURL))
	chans := writeFile(t, dir, "channels.yaml", fmt.Sprintf(`
channels:
  - id: sink
    type: http
    http:
      url: %s
`, sinkURL))

	return &config.Config{
		ChannelsFile:           chans,
		SourcesFile:            sources,
		PollInterval:           time.Hour,
		NumMeta:                2,
		ShutdownTimeout:        time.Second,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "directory.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestReminderReportsMatchesAndTerminates(t *testing.T) {
	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bbs/Test/index.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(testIndex))
	}))
	defer board.Close()
	sink := &envelopeSink{}
	sinkSrv := httptest.NewServer(sink)
	defer sinkSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := NewReminder(ctx, testConfig(t, board.URL, sinkSrv.URL), nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, [][]string{{"iphone"}}, []string{"Test"}) }()

	require.Eventually(t, func() bool { return len(sink.snapshot()) >= 2 }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	texts := sink.snapshot()
	require.Len(t, texts, 3)
	assert.Equal(t, "Service start, searching in Test, for keywords: [iphone]", texts[0])
	assert.True(t, strings.HasPrefix(texts[1], "New article\nBoard: Test\n"), texts[1])
	assert.Contains(t, texts[1], "Link: "+board.URL+"/bbs/Test/M.101.A.AAA.html")
	assert.Equal(t, engine.TerminatedMessage, texts[2])
}

func TestReminderRejectsUnknownSource(t *testing.T) {
	sinkSrv := httptest.NewServer(&envelopeSink{})
	defer sinkSrv.Close()

	r, err := NewReminder(context.Background(), testConfig(t, "http://127.0.0.1:1", sinkSrv.URL), nil)
	require.NoError(t, err)

	err = r.Run(context.Background(), [][]string{{"x"}}, []string{"dcard:Test"})
	assert.True(t, engine.IsConfigurationError(err), "got %v", err)
}

func TestNewReminderFailsWithoutChannelsFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.ChannelsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewReminder(context.Background(), cfg, nil)
	assert.Error(t, err)
}
