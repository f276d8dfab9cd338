package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

const discordMaxContentRunes = 2000

type discordPayload struct {
	Content string `json:"content"`
}

// discordChannel posts to Discord webhooks. Client list values are webhook URLs,
// one per recipient; webhook_url serves broadcasts.
type discordChannel struct {
	base
	webhookURL string
	client     httpclient.JSONPoster
}

func newDiscordChannel(_ context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	timeout := defaultTimeoutSeconds
	webhook := ""
	if cfg.Discord != nil {
		timeout = cfg.Discord.TimeoutSeconds
		webhook = cfg.Discord.WebhookURL
	}

	return &discordChannel{
		base:       newBase(cfg, TypeDiscord, deps.Log),
		webhookURL: webhook,
		client:     httpclient.NewRestyClient(time.Duration(timeout) * time.Second),
	}, nil
}

func (d *discordChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	hook, ok := d.lookupClient(receiverKey)
	if !ok {
		return false
	}
	if err := d.post(ctx, hook, text); err != nil {
		return d.failed("send", err)
	}
	return d.delivered("send", receiverKey)
}

func (d *discordChannel) SendToAll(ctx context.Context, text string) bool {
	if d.webhookURL == "" {
		return d.failed("broadcast", errors.New("no broadcast webhook configured"))
	}
	if err := d.post(ctx, d.webhookURL, text); err != nil {
		return d.failed("broadcast", err)
	}
	return d.delivered("broadcast", "")
}

func (d *discordChannel) post(ctx context.Context, hook, text string) error {
	body := discordPayload{Content: truncateRunes(text, discordMaxContentRunes)}
	resp, err := d.client.SendJSON(ctx, http.MethodPost, hook, nil, body)
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	if !isSuccess(resp.StatusCode()) {
		return fmt.Errorf("discord response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}
