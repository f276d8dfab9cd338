package channels

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

const (
	lineDefaultBaseURL = "https://api.line.me"
	linePushPath       = "/v2/bot/message/push"
	lineBroadcastPath  = "/v2/bot/message/broadcast"
	lineMaxTextRunes   = 5000
)

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineBroadcastRequest struct {
	Messages []lineMessage `json:"messages"`
}

// lineChannel talks to the LINE Messaging API. Client list values are LINE user ids.
type lineChannel struct {
	base
	token   string
	baseURL string
	client  httpclient.JSONPoster
}

func newLineChannel(_ context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.Line == nil {
		return nil, fmt.Errorf("channel %q missing line configuration", cfg.ID)
	}

	return &lineChannel{
		base:    newBase(cfg, TypeLine, deps.Log),
		token:   cfg.Line.ChannelAccessToken,
		baseURL: cfg.Line.BaseURL,
		client:  httpclient.NewRestyClient(time.Duration(cfg.Line.TimeoutSeconds) * time.Second),
	}, nil
}

func (l *lineChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	userID, ok := l.lookupClient(receiverKey)
	if !ok {
		return false
	}
	body := linePushRequest{To: userID, Messages: l.messages(text)}
	if err := l.post(ctx, linePushPath, body); err != nil {
		return l.failed("push", err)
	}
	return l.delivered("push", receiverKey)
}

func (l *lineChannel) SendToAll(ctx context.Context, text string) bool {
	body := lineBroadcastRequest{Messages: l.messages(text)}
	if err := l.post(ctx, lineBroadcastPath, body); err != nil {
		return l.failed("broadcast", err)
	}
	return l.delivered("broadcast", "")
}

func (l *lineChannel) messages(text string) []lineMessage {
	return []lineMessage{{Type: "text", Text: truncateRunes(text, lineMaxTextRunes)}}
}

func (l *lineChannel) post(ctx context.Context, path string, body any) error {
	headers := map[string]string{"Authorization": "Bearer " + l.token}
	resp, err := l.client.SendJSON(ctx, http.MethodPost, l.baseURL+path, headers, body)
	if err != nil {
		return fmt.Errorf("line request: %w", err)
	}
	if !isSuccess(resp.StatusCode()) {
		return fmt.Errorf("line response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return nil
}
