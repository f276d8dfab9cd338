package channels

import (
	"context"
	"errors"
	"testing"
)

type stubChannel struct {
	id        string
	ok        bool
	panics    bool
	sends     int
	broadcast int
	lastText  string
	lastKey   string
}

func (s *stubChannel) ID() string   { return s.id }
func (s *stubChannel) Type() string { return "stub" }

func (s *stubChannel) SendToOne(_ context.Context, text, receiverKey string) bool {
	s.sends++
	s.lastText = text
	s.lastKey = receiverKey
	if s.panics {
		panic("transport exploded")
	}
	return s.ok
}

func (s *stubChannel) SendToAll(_ context.Context, text string) bool {
	s.broadcast++
	s.lastText = text
	if s.panics {
		panic("transport exploded")
	}
	return s.ok
}

func TestDispatcherStopsAtFirstSuccess(t *testing.T) {
	a := &stubChannel{id: "a"}
	b := &stubChannel{id: "b", ok: true}
	c := &stubChannel{id: "c", ok: true}
	d := NewDispatcher([]Channel{a, b, c}, nil)

	if err := d.Send(context.Background(), "hello", "alice"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if a.sends != 1 || b.sends != 1 || c.sends != 0 {
		t.Fatalf("unexpected attempts a=%d b=%d c=%d", a.sends, b.sends, c.sends)
	}
	if b.lastKey != "alice" || b.lastText != "hello" {
		t.Fatalf("b received %q/%q", b.lastKey, b.lastText)
	}
}

func TestDispatcherAllFail(t *testing.T) {
	a := &stubChannel{id: "a"}
	b := &stubChannel{id: "b"}
	d := NewDispatcher([]Channel{a, b}, nil)

	err := d.Broadcast(context.Background(), "hello")
	if !errors.Is(err, ErrAllChannelsUnavailable) {
		t.Fatalf("expected ErrAllChannelsUnavailable, got %v", err)
	}
	if a.broadcast != 1 || b.broadcast != 1 {
		t.Fatalf("expected one attempt each, got a=%d b=%d", a.broadcast, b.broadcast)
	}
}

func TestDispatcherTreatsPanicAsFailure(t *testing.T) {
	a := &stubChannel{id: "a", panics: true}
	b := &stubChannel{id: "b", ok: true}
	d := NewDispatcher([]Channel{a, b}, nil)

	if err := d.Send(context.Background(), "hello", "alice"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if b.sends != 1 {
		t.Fatalf("fallback channel not tried")
	}
}

func TestDispatcherNotifyRoutesByReceiver(t *testing.T) {
	a := &stubChannel{id: "a", ok: true}
	d := NewDispatcher([]Channel{a}, nil)

	if err := d.Notify(context.Background(), "one", "alice"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := d.Notify(context.Background(), "all", ""); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if a.sends != 1 || a.broadcast != 1 {
		t.Fatalf("sends=%d broadcast=%d", a.sends, a.broadcast)
	}
}

func TestDispatcherEmpty(t *testing.T) {
	d := NewDispatcher([]Channel{nil}, nil)
	if d.Size() != 0 {
		t.Fatalf("nil channel kept")
	}
	if err := d.Send(context.Background(), "x", "y"); !errors.Is(err, ErrAllChannelsUnavailable) {
		t.Fatalf("expected ErrAllChannelsUnavailable, got %v", err)
	}
}

func TestDispatcherIDs(t *testing.T) {
	d := NewDispatcher([]Channel{&stubChannel{id: "a"}, &stubChannel{id: "b"}}, nil)
	ids := d.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("IDs = %v", ids)
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	chs, err := BuildAll(context.Background(), reg, []ChannelConfig{
		{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://example.com", Method: "POST", TimeoutSeconds: 1}},
		{ID: "out", Type: TypeConsole},
	}, Deps{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(chs) != 2 || chs[0].ID() != "hook" || chs[1].Type() != TypeConsole {
		t.Fatalf("unexpected channels: %#v", chs)
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), NewRegistry(nil), []ChannelConfig{{ID: "x", Type: "pager"}}, Deps{})
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
