package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

const telegramMaxTextRunes = 4096

var errUnknownTelegramUser = errors.New("telegram username has no known chat")

// telegramUpdates is the subset of a getUpdates response used to map
// usernames to chat ids.
type telegramUpdates struct {
	Result []struct {
		Message *struct {
			Chat struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"result"`
}

// telegramChannel sends through the Telegram Bot API. Client list values are
// numeric chat ids or usernames; usernames resolve through recent bot updates.
type telegramChannel struct {
	base
	bot       *tele.Bot
	directory Directory

	mu    sync.Mutex
	chats map[string]int64
}

func newTelegramChannel(_ context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.Telegram == nil {
		return nil, fmt.Errorf("channel %q missing telegram configuration", cfg.ID)
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.BotToken,
		URL:     cfg.Telegram.APIURL,
		Client:  &http.Client{Timeout: time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &telegramChannel{
		base:      newBase(cfg, TypeTelegram, deps.Log),
		bot:       bot,
		directory: deps.Directory,
		chats:     make(map[string]int64),
	}, nil
}

func (t *telegramChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	addr, ok := t.address(receiverKey)
	if !ok {
		return false
	}
	if err := t.sendTo(ctx, addr, text); err != nil {
		return t.failed("send", err)
	}
	return t.delivered("send", receiverKey)
}

// SendToAll sends to every client list entry and succeeds when at least one
// recipient received the message.
func (t *telegramChannel) SendToAll(ctx context.Context, text string) bool {
	keys := t.clientKeys()
	if len(keys) == 0 {
		return t.failed("broadcast", errors.New("client list is empty"))
	}

	sent := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		if err := t.sendTo(ctx, t.clients[key], text); err != nil {
			t.failed("broadcast", fmt.Errorf("receiver %q: %w", key, err))
			continue
		}
		sent++
	}
	if sent == 0 {
		return false
	}
	return t.delivered("broadcast", "")
}

func (t *telegramChannel) sendTo(ctx context.Context, addr, text string) error {
	chatID, err := t.resolveChat(ctx, addr)
	if err != nil {
		return err
	}
	if _, err := t.bot.Send(&tele.Chat{ID: chatID}, truncateRunes(text, telegramMaxTextRunes)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// resolveChat turns a chat id or username into a chat id.
func (t *telegramChannel) resolveChat(ctx context.Context, addr string) (int64, error) {
	if id, err := strconv.ParseInt(addr, 10, 64); err == nil {
		return id, nil
	}
	username := normalizeUsername(addr)

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.chats[username]; ok {
		return id, nil
	}
	if id, ok := t.lookupDirectory(username); ok {
		t.chats[username] = id
		return id, nil
	}
	if err := t.refreshChats(ctx); err != nil {
		return 0, err
	}
	if id, ok := t.chats[username]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %s", errUnknownTelegramUser, username)
}

func (t *telegramChannel) lookupDirectory(username string) (int64, bool) {
	if t.directory == nil {
		return 0, false
	}
	val, ok, err := t.directory.Lookup(t.namespace(), username)
	if err != nil {
		t.log.WarnObj("telegram directory lookup failed", "telegram_directory_error", map[string]any{
			"channel_id": t.id,
			"error":      err.Error(),
		})
		return 0, false
	}
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// refreshChats records every username seen in pending bot updates.
func (t *telegramChannel) refreshChats(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := t.bot.Raw("getUpdates", map[string]string{})
	if err != nil {
		return fmt.Errorf("telegram getUpdates: %w", err)
	}

	var updates telegramUpdates
	if err := json.Unmarshal(raw, &updates); err != nil {
		return fmt.Errorf("decode telegram updates: %w", err)
	}

	for _, u := range updates.Result {
		if u.Message == nil || u.Message.Chat.Username == "" {
			continue
		}
		username := normalizeUsername(u.Message.Chat.Username)
		t.chats[username] = u.Message.Chat.ID
		if t.directory == nil {
			continue
		}
		if err := t.directory.Save(t.namespace(), username, strconv.FormatInt(u.Message.Chat.ID, 10)); err != nil {
			t.log.WarnObj("telegram directory save failed", "telegram_directory_error", map[string]any{
				"channel_id": t.id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

func (t *telegramChannel) namespace() string {
	return "telegram:" + t.id
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
