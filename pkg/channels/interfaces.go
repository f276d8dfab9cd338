package channels

import "context"

// Channel delivers a text message through one transport (LINE, Telegram, SQS, etc).
// Implementations report failure by returning false; they never panic on
// transport errors.
type Channel interface {
	ID() string
	Type() string
	// SendToOne delivers text to the recipient registered under receiverKey.
	SendToOne(ctx context.Context, text, receiverKey string) bool
	// SendToAll delivers text to every recipient the channel can reach.
	SendToAll(ctx context.Context, text string) bool
}

// Directory caches resolved recipient addresses between runs.
type Directory interface {
	Lookup(namespace, key string) (string, bool, error)
	Save(namespace, key, value string) error
}
