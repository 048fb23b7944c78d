package config

import (
	"net"
	"strconv"
	"time"

	"github.com/wamid/kommobot/internal/reply"
)

// Config represents the complete kommobot configuration.
//
// Values are layered: Defaults, then the YAML file (with ${VAR} interpolation),
// then the environment variables named in the env tags.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	Webhook WebhookConfig `yaml:"webhook"`
	Kommo   KommoConfig   `yaml:"kommo"`
	Replies RepliesConfig `yaml:"replies,omitempty"`

	// SourcePath is the absolute path of the loaded file, "" in env-only mode.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=json console"`
	LogFile   string `yaml:"log_file,omitempty" env:"LOG_FILE"`
	PIDFile   string `yaml:"pid_file,omitempty" env:"KOMMOBOT_PID_FILE"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"KOMMOBOT_HOST"`
	Port int    `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
}

// Listen returns host:port.
func (s ServerConfig) Listen() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// WebhookConfig defines the chat webhook endpoint.
type WebhookConfig struct {
	Path            string `yaml:"path" validate:"startswith=/"`
	Secret          string `yaml:"secret" env:"CHAT_CHANNEL_SECRET"`
	SignatureHeader string `yaml:"signature_header" validate:"required"`
	MaxBodySize     string `yaml:"max_body_size"`

	// RequireSecret refuses to start without a channel secret instead of
	// accepting every request.
	RequireSecret bool `yaml:"require_secret" env:"REQUIRE_CHANNEL_SECRET"`

	// AsyncDispatch acknowledges before the outbound send finishes.
	AsyncDispatch bool `yaml:"async_dispatch" env:"ASYNC_DISPATCH"`
}

// KommoConfig defines the Kommo account and API credentials.
type KommoConfig struct {
	BaseURL         string        `yaml:"base_url" env:"KOMMO_BASE_URL" validate:"omitempty,url"`
	ClientID        string        `yaml:"client_id" env:"KOMMO_CLIENT_ID"`
	ClientSecret    string        `yaml:"client_secret" env:"KOMMO_CLIENT_SECRET"`
	RedirectURI     string        `yaml:"redirect_uri" env:"KOMMO_REDIRECT_URI" validate:"omitempty,url"`
	AccessToken     string        `yaml:"access_token" env:"KOMMO_ACCESS_TOKEN"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" env:"KOMMO_DISPATCH_TIMEOUT"`
	MsgIDPrefix     string        `yaml:"msgid_prefix"`
}

// RepliesConfig overrides the built-in reply rules. Rules are evaluated in
// order, Default is the catch-all.
type RepliesConfig struct {
	Rules   []reply.RuleSpec `yaml:"rules,omitempty"`
	Default string           `yaml:"default,omitempty"`
}

// Defaults returns a Config with the values the bot ships with.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "kommobot",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Webhook: WebhookConfig{
			Path:            "/chat/webhook",
			SignatureHeader: "X-Signature",
			MaxBodySize:     "100KB",
		},
		Kommo: KommoConfig{
			DispatchTimeout: 10 * time.Second,
			MsgIDPrefix:     "wamid-",
		},
	}
}

// DispatchEnabled reports whether replies can be sent back.
func (c *Config) DispatchEnabled() bool {
	return c.Kommo.AccessToken != ""
}

// ReplyRules returns the configured rules, or the built-in ones.
func (c *Config) ReplyRules() ([]reply.RuleSpec, string) {
	rules := c.Replies.Rules
	if len(rules) == 0 {
		rules = reply.DefaultRuleSpecs()
	}
	fallback := c.Replies.Default
	if fallback == "" {
		fallback = reply.WelcomeReply
	}
	return rules, fallback
}
