package channels

import (
	"sort"
	"strings"
)

// base carries the fields every channel shares.
type base struct {
	id      string
	typ     string
	clients map[string]string
	log     Logger
}

func newBase(cfg ChannelConfig, typ string, log Logger) base {
	return base{
		id:      cfg.ID,
		typ:     typ,
		clients: cfg.Clients,
		log:     ensureLogger(log),
	}
}

func (b base) ID() string   { return b.id }
func (b base) Type() string { return b.typ }

// lookupClient maps a receiver key to its transport address via client_list.
func (b base) lookupClient(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	addr, ok := b.clients[key]
	if !ok {
		b.log.WarnObj("receiver not in client list", "channel_unknown_receiver", map[string]any{
			"channel_id": b.id,
			"receiver":   key,
		})
	}
	return addr, ok
}

// address is like lookupClient, but passes the key through when the channel
// has no client list configured.
func (b base) address(key string) (string, bool) {
	if len(b.clients) == 0 {
		key = strings.TrimSpace(key)
		return key, key != ""
	}
	return b.lookupClient(key)
}

// clientKeys returns the client list keys in a stable order.
func (b base) clientKeys() []string {
	keys := make([]string, 0, len(b.clients))
	for k := range b.clients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b base) failed(op string, err error) bool {
	b.log.ErrorObj("channel delivery failed", "channel_delivery_error", map[string]any{
		"channel_id": b.id,
		"type":       b.typ,
		"op":         op,
		"error":      err.Error(),
	})
	return false
}

func (b base) delivered(op, receiver string) bool {
	b.log.DebugObj("channel delivered message", "channel_delivery", map[string]any{
		"channel_id": b.id,
		"type":       b.typ,
		"op":         op,
		"receiver":   receiver,
	})
	return true
}

// truncateRunes caps text at limit runes; transports reject longer messages.
func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
