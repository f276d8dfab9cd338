package channels

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConsoleChannelWrites(t *testing.T) {
	var buf bytes.Buffer
	ch, err := newConsoleChannel(context.Background(), ChannelConfig{ID: "out", Type: TypeConsole}, Deps{Stdout: &buf})
	if err != nil {
		t.Fatalf("newConsoleChannel: %v", err)
	}

	if !ch.SendToOne(context.Background(), "hello", "alice") {
		t.Fatalf("SendToOne returned false")
	}
	if !ch.SendToAll(context.Background(), "everyone") {
		t.Fatalf("SendToAll returned false")
	}
	out := buf.String()
	if !strings.Contains(out, "[out -> alice]\nhello") || !strings.Contains(out, "[out -> *]\neveryone") {
		t.Fatalf("unexpected output %q", out)
	}
}
