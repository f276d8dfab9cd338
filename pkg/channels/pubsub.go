package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubChannel publishes envelopes to a Google Cloud Pub/Sub topic.
type pubsubChannel struct {
	base
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newPubSubChannel(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("channel %q missing pubsub configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubChannel{
		base:   newBase(cfg, TypePubSub, deps.Log),
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
	}, nil
}

func (p *pubsubChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	addr, ok := p.address(receiverKey)
	if !ok {
		return false
	}
	if err := p.publish(ctx, NewEnvelope(p.id, addr, text)); err != nil {
		return p.failed("send", err)
	}
	return p.delivered("send", receiverKey)
}

func (p *pubsubChannel) SendToAll(ctx context.Context, text string) bool {
	if err := p.publish(ctx, NewEnvelope(p.id, "", text)); err != nil {
		return p.failed("broadcast", err)
	}
	return p.delivered("broadcast", "")
}

func (p *pubsubChannel) publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	attrs := map[string]string{"kind": envelopeKind(env)}
	if env.Receiver != "" {
		attrs["receiver"] = env.Receiver
	}

	res := p.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubChannel) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
