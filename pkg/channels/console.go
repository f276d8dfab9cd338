package channels

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// consoleChannel writes messages to stdout or stderr.
type consoleChannel struct {
	base
	mu  sync.Mutex
	out io.Writer
}

func newConsoleChannel(_ context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	var out io.Writer
	if cfg.Console != nil && cfg.Console.Stream == "stderr" {
		out = deps.Stderr
		if out == nil {
			out = os.Stderr
		}
	} else {
		out = deps.Stdout
		if out == nil {
			out = os.Stdout
		}
	}

	return &consoleChannel{
		base: newBase(cfg, TypeConsole, deps.Log),
		out:  out,
	}, nil
}

func (c *consoleChannel) SendToOne(_ context.Context, text, receiverKey string) bool {
	if receiverKey == "" {
		return false
	}
	return c.write(fmt.Sprintf("[%s -> %s]\n%s\n", c.id, receiverKey, text))
}

func (c *consoleChannel) SendToAll(_ context.Context, text string) bool {
	return c.write(fmt.Sprintf("[%s -> *]\n%s\n", c.id, text))
}

func (c *consoleChannel) write(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, s); err != nil {
		return c.failed("write", err)
	}
	return true
}
