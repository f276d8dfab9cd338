package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Deps are the shared collaborators handed to every channel builder.
type Deps struct {
	Log       Logger
	Directory Directory
	Stdout    io.Writer
	Stderr    io.Writer
}

// Builder creates a Channel from a config entry.
type Builder func(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error)

// Registry maps channel types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	ChannelFor(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a channel type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// ChannelFor returns the channel built for the provided config.
func (r *registry) ChannelFor(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("channel %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no channel registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, deps)
}

// DefaultRegistry wires up known channels.
func DefaultRegistry() Registry {
	builders := map[string]Builder{
		TypeLine:     newLineChannel,
		TypeTelegram: newTelegramChannel,
		TypeDiscord:  newDiscordChannel,
		TypeHTTP:     newHTTPChannel,
		TypeSNS:      newSNSChannel,
		TypeSQS:      newSQSChannel,
		TypePubSub:   newPubSubChannel,
		TypeConsole:  newConsoleChannel,
	}
	return NewRegistry(builders)
}

// BuildAll instantiates channels for configs using the registry, preserving order.
func BuildAll(ctx context.Context, reg Registry, cfgs []ChannelConfig, deps Deps) ([]Channel, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var chs []Channel
	for _, cfg := range cfgs {
		ch, err := reg.ChannelFor(ctx, cfg, deps)
		if err != nil {
			closeAll(chs)
			return nil, fmt.Errorf("build channel %q: %w", cfg.ID, err)
		}
		chs = append(chs, ch)
	}
	return chs, nil
}

func closeAll(chs []Channel) error {
	var errs []error
	for _, ch := range chs {
		if c, ok := ch.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close channel %q: %w", ch.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
