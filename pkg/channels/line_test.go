package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLineChannel(t *testing.T, baseURL string) Channel {
	t.Helper()
	ch, err := newLineChannel(context.Background(), sanitizeChannelConfig(ChannelConfig{
		ID:         "line",
		Type:       TypeLine,
		ClientList: map[string]any{"alice": "U42"},
		Line:       &LineConfig{ChannelAccessToken: "secret", BaseURL: baseURL, TimeoutSeconds: 2},
	}), Deps{})
	if err != nil {
		t.Fatalf("newLineChannel: %v", err)
	}
	return ch
}

func TestLineChannelPush(t *testing.T) {
	var got linePushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != linePushPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	ch := newTestLineChannel(t, srv.URL)
	if !ch.SendToOne(context.Background(), "hello", "alice") {
		t.Fatalf("SendToOne returned false")
	}
	if got.To != "U42" || len(got.Messages) != 1 || got.Messages[0].Text != "hello" || got.Messages[0].Type != "text" {
		t.Fatalf("unexpected payload %#v", got)
	}
}

func TestLineChannelUnknownReceiver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("no request expected")
	}))
	defer srv.Close()

	ch := newTestLineChannel(t, srv.URL)
	if ch.SendToOne(context.Background(), "hello", "mallory") {
		t.Fatalf("expected false for receiver outside client list")
	}
}

func TestLineChannelBroadcastFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != lineBroadcastPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		http.Error(w, `{"message":"Authentication failed"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	ch := newTestLineChannel(t, srv.URL)
	if ch.SendToAll(context.Background(), "hello") {
		t.Fatalf("expected false on 401")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("看板提醒", 2); got != "看板" {
		t.Fatalf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Fatalf("truncateRunes = %q", got)
	}
}
