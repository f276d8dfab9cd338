package channels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported channel types.
	TypeLine     = "line"
	TypeTelegram = "telegram"
	TypeDiscord  = "discord"
	TypeHTTP     = "http"
	TypeSNS      = "sns"
	TypeSQS      = "sqs"
	TypePubSub   = "pubsub"
	TypeConsole  = "console"

	httpDefaultMethod     = "POST"
	defaultTimeoutSeconds = 5
)

// configFile represents the structure of the channels configuration file.
type configFile struct {
	Channels []ChannelConfig `json:"channels" yaml:"channels"`
}

// ChannelConfig represents a single channel entry declared in config files.
// File order is fallback priority.
type ChannelConfig struct {
	ID         string            `json:"id" yaml:"id"`
	Type       string            `json:"type" yaml:"type"`
	Enabled    *bool             `json:"enabled" yaml:"enabled"`
	ClientList map[string]any    `json:"client_list" yaml:"client_list"`
	Clients    map[string]string `json:"-" yaml:"-"`

	Line     *LineConfig     `json:"line" yaml:"line"`
	Telegram *TelegramConfig `json:"telegram" yaml:"telegram"`
	Discord  *DiscordConfig  `json:"discord" yaml:"discord"`
	HTTP     *HTTPConfig     `json:"http" yaml:"http"`
	SNS      *SNSConfig      `json:"sns" yaml:"sns"`
	SQS      *SQSConfig      `json:"sqs" yaml:"sqs"`
	PubSub   *PubSubConfig   `json:"pubsub" yaml:"pubsub"`
	Console  *ConsoleConfig  `json:"console" yaml:"console"`
}

// LineConfig holds LINE Messaging API settings.
type LineConfig struct {
	ChannelAccessToken string `json:"channel_access_token" yaml:"channel_access_token"`
	BaseURL            string `json:"base_url" yaml:"base_url"`
	TimeoutSeconds     int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	BotToken       string `json:"bot_token" yaml:"bot_token"`
	APIURL         string `json:"api_url" yaml:"api_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// DiscordConfig holds Discord webhook settings. Client list values are webhook URLs.
type DiscordConfig struct {
	WebhookURL     string `json:"webhook_url" yaml:"webhook_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPConfig holds generic HTTP sink settings.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SNSConfig holds AWS SNS specific settings.
type SNSConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSConfig holds AWS SQS specific settings.
type SQSConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// PubSubConfig holds Google Cloud Pub/Sub settings.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConsoleConfig selects the console stream.
type ConsoleConfig struct {
	Stream string `json:"stream" yaml:"stream"`
}

// ConfigRegistry materializes channel definitions loaded from config files.
type ConfigRegistry struct {
	mu       sync.RWMutex
	channels []ChannelConfig
	idx      map[string]ChannelConfig
}

// LoadRegistry loads the channel registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("channels file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channels file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	// Secrets such as bot tokens are usually supplied as ${VAR} references.
	raw = []byte(os.ExpandEnv(string(raw)))

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry validates and decodes channels file content.
func ParseRegistry(raw []byte, ext string) (*ConfigRegistry, error) {
	if err := validateSchema(raw, ext); err != nil {
		return nil, err
	}

	fileReg, err := parseChannelRegistry(raw, ext)
	if err != nil {
		return nil, err
	}
	if len(fileReg.Channels) == 0 {
		return nil, errors.New("channels file contains no channels entries")
	}

	reg := &ConfigRegistry{
		channels: make([]ChannelConfig, len(fileReg.Channels)),
		idx:      make(map[string]ChannelConfig, len(fileReg.Channels)),
	}

	for i := range fileReg.Channels {
		cfg := sanitizeChannelConfig(fileReg.Channels[i])
		if err := validateChannelConfig(cfg); err != nil {
			return nil, fmt.Errorf("channels[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate channel id %q", cfg.ID)
		}
		reg.channels[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

type unmarshalFn func([]byte, any) error

var decoders = []struct {
	ext string
	fn  unmarshalFn
}{
	{ext: ".yaml", fn: yaml.Unmarshal},
	{ext: ".yml", fn: yaml.Unmarshal},
	{ext: ".json", fn: json.Unmarshal},
}

// decodeChannelsFile decodes data into out using the decoder matching ext,
// or the first decoder that succeeds when ext is unknown.
func decodeChannelsFile(data []byte, ext string, out func() any) (any, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		target := out()
		if err := d.fn(data, target); err == nil {
			return target, nil
		}
	}
	return nil, errors.New("channels file format not recognized (expected YAML or JSON)")
}

// parseChannelRegistry attempts to decode the channels file content.
func parseChannelRegistry(data []byte, ext string) (configFile, error) {
	decoded, err := decodeChannelsFile(data, ext, func() any { return &configFile{} })
	if err != nil {
		return configFile{}, err
	}
	return *decoded.(*configFile), nil
}

// sanitizeChannelConfig trims and normalizes the channel config fields.
func sanitizeChannelConfig(cfg ChannelConfig) ChannelConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	cfg.Clients = normalizeClients(cfg.ClientList)

	if cfg.Line != nil {
		c := *cfg.Line
		c.ChannelAccessToken = strings.TrimSpace(c.ChannelAccessToken)
		c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
		if c.BaseURL == "" {
			c.BaseURL = lineDefaultBaseURL
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = defaultTimeoutSeconds
		}
		cfg.Line = &c
	}
	if cfg.Telegram != nil {
		c := *cfg.Telegram
		c.BotToken = strings.TrimSpace(c.BotToken)
		c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = defaultTimeoutSeconds
		}
		cfg.Telegram = &c
	}
	if cfg.Discord != nil {
		c := *cfg.Discord
		c.WebhookURL = strings.TrimSpace(c.WebhookURL)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = defaultTimeoutSeconds
		}
		cfg.Discord = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = defaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}

	return cfg
}

// normalizeClients flattens client_list values (strings or numeric ids) to strings.
func normalizeClients(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		var val string
		switch t := v.(type) {
		case string:
			val = t
		case int:
			val = strconv.Itoa(t)
		case int64:
			val = strconv.FormatInt(t, 10)
		case float64:
			val = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			val = ""
		default:
			val = fmt.Sprint(t)
		}
		val = strings.TrimSpace(val)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateChannelConfig checks that required fields are present.
func validateChannelConfig(cfg ChannelConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for channel %q", cfg.ID)
	}

	switch cfg.Type {
	case TypeLine:
		if cfg.Line == nil || cfg.Line.ChannelAccessToken == "" {
			return fmt.Errorf("line.channel_access_token is required for channel %q", cfg.ID)
		}
	case TypeTelegram:
		if cfg.Telegram == nil || cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required for channel %q", cfg.ID)
		}
	case TypeDiscord:
		hasWebhook := cfg.Discord != nil && cfg.Discord.WebhookURL != ""
		if !hasWebhook && len(cfg.Clients) == 0 {
			return fmt.Errorf("discord.webhook_url or client_list is required for channel %q", cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for channel %q", cfg.ID)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for channel %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil || cfg.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for channel %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for channel %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil || cfg.SQS.QueueURL == "" {
			return fmt.Errorf("sqs.uri is required for channel %q", cfg.ID)
		}
		if cfg.SQS.Region == "" {
			return fmt.Errorf("sqs.region is required for channel %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil || cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic are required for channel %q", cfg.ID)
		}
	case TypeConsole:
	default:
		return fmt.Errorf("unsupported type %q for channel %q", cfg.Type, cfg.ID)
	}
	return nil
}

// ByID returns the channel config by id.
func (r *ConfigRegistry) ByID(id string) (ChannelConfig, bool) {
	if r == nil {
		return ChannelConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ChannelConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured channels in file order.
func (r *ConfigRegistry) All() []ChannelConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ChannelConfig, len(r.channels))
	copy(out, r.channels)
	return out
}

// Enabled returns channels that are enabled, in priority order.
func (r *ConfigRegistry) Enabled() []ChannelConfig {
	if r == nil {
		return nil
	}

	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]ChannelConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg ChannelConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
