package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrAllChannelsUnavailable is returned when no channel accepted a message.
var ErrAllChannelsUnavailable = errors.New("all notification channels are unavailable")

// Dispatcher tries channels in priority order and stops at the first one
// that reports success.
type Dispatcher struct {
	channels []Channel
	log      Logger
}

// NewDispatcher builds a fallback chain over chs, dropping nil entries.
func NewDispatcher(chs []Channel, log Logger) *Dispatcher {
	cp := make([]Channel, 0, len(chs))
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		cp = append(cp, ch)
	}
	return &Dispatcher{channels: cp, log: ensureLogger(log)}
}

// Send delivers text to receiver through the first channel that succeeds.
func (d *Dispatcher) Send(ctx context.Context, text, receiver string) error {
	return d.dispatch(ctx, "send", receiver, func(ch Channel) bool {
		return ch.SendToOne(ctx, text, receiver)
	})
}

// Broadcast delivers text to every recipient of the first channel that succeeds.
func (d *Dispatcher) Broadcast(ctx context.Context, text string) error {
	return d.dispatch(ctx, "broadcast", "", func(ch Channel) bool {
		return ch.SendToAll(ctx, text)
	})
}

// Notify sends to receiver when one is given and broadcasts otherwise.
func (d *Dispatcher) Notify(ctx context.Context, text, receiver string) error {
	if strings.TrimSpace(receiver) == "" {
		return d.Broadcast(ctx, text)
	}
	return d.Send(ctx, text, receiver)
}

func (d *Dispatcher) dispatch(ctx context.Context, op, receiver string, try func(Channel) bool) error {
	if d == nil || len(d.channels) == 0 {
		return fmt.Errorf("%w: no channels configured", ErrAllChannelsUnavailable)
	}

	tried := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		if err := ctx.Err(); err != nil && len(tried) > 0 {
			return fmt.Errorf("%w: %v", ErrAllChannelsUnavailable, err)
		}
		tried = append(tried, ch.ID())
		if d.attempt(ch, op, try) {
			if len(tried) > 1 {
				d.log.InfoObj("message delivered by fallback channel", "dispatch_fallback", map[string]any{
					"op":         op,
					"channel_id": ch.ID(),
					"receiver":   receiver,
					"tried":      tried,
				})
			}
			return nil
		}
		d.log.WarnObj("channel unavailable, trying next", "dispatch_channel_failed", map[string]any{
			"op":         op,
			"channel_id": ch.ID(),
			"type":       ch.Type(),
			"receiver":   receiver,
		})
	}

	d.log.ErrorObj("no channel delivered message", "dispatch_exhausted", map[string]any{
		"op":       op,
		"receiver": receiver,
		"tried":    tried,
	})
	return fmt.Errorf("%w (tried %s)", ErrAllChannelsUnavailable, strings.Join(tried, ", "))
}

// attempt runs try on ch, treating a panic as a failed delivery.
func (d *Dispatcher) attempt(ch Channel, op string, try func(Channel) bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorObj("channel panicked", "dispatch_channel_panic", map[string]any{
				"op":         op,
				"channel_id": ch.ID(),
				"panic":      fmt.Sprint(r),
			})
			ok = false
		}
	}()
	return try(ch)
}

// Size returns the number of channels in the chain.
func (d *Dispatcher) Size() int {
	if d == nil {
		return 0
	}
	return len(d.channels)
}

// IDs returns channel ids in priority order.
func (d *Dispatcher) IDs() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.channels))
	for i, ch := range d.channels {
		out[i] = ch.ID()
	}
	return out
}

// Close releases channels that hold connections.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return closeAll(d.channels)
}
