package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

// httpChannel delivers an Envelope to a generic webhook.
type httpChannel struct {
	base
	method  string
	url     string
	headers map[string]string
	client  httpclient.JSONPoster
}

func newHTTPChannel(_ context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("channel %q missing http configuration", cfg.ID)
	}

	return &httpChannel{
		base:    newBase(cfg, TypeHTTP, deps.Log),
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
	}, nil
}

func (h *httpChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	addr, ok := h.address(receiverKey)
	if !ok {
		return false
	}
	if err := h.deliver(ctx, NewEnvelope(h.id, addr, text)); err != nil {
		return h.failed("send", err)
	}
	return h.delivered("send", receiverKey)
}

func (h *httpChannel) SendToAll(ctx context.Context, text string) bool {
	if err := h.deliver(ctx, NewEnvelope(h.id, "", text)); err != nil {
		return h.failed("broadcast", err)
	}
	return h.delivered("broadcast", "")
}

func (h *httpChannel) deliver(ctx context.Context, env Envelope) error {
	resp, err := h.client.SendJSON(ctx, h.method, h.url, h.headers, env)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if !isSuccess(resp.StatusCode()) {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}
