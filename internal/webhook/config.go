package webhook

import (
	"fmt"

	"github.com/wamid/kommobot/internal/config"
)

// FromGlobalConfig converts the loaded service config to webhook.Config.
// Parses the max body size and derives whether dispatch is possible.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	maxBodySize, err := config.ParseSize(cfg.Webhook.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("webhook: invalid max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	return Config{
		Listen:          cfg.Server.Listen(),
		Path:            cfg.Webhook.Path,
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		MaxBodySize:     maxBodySize,
		DispatchEnabled: cfg.DispatchEnabled(),
		AsyncDispatch:   cfg.Webhook.AsyncDispatch,
	}, nil
}
