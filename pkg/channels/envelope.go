package channels

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the JSON payload queue and webhook channels deliver downstream.
type Envelope struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Receiver  string    `json:"receiver,omitempty"`
	Broadcast bool      `json:"broadcast"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// NewEnvelope wraps text for the given channel. An empty receiver marks a broadcast.
func NewEnvelope(channelID, receiver, text string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Receiver:  receiver,
		Broadcast: receiver == "",
		Text:      text,
		SentAt:    time.Now().UTC(),
	}
}
