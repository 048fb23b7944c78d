package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wamid/kommobot/internal/config"
	"github.com/wamid/kommobot/internal/kommo"
	"github.com/wamid/kommobot/internal/lock"
	"github.com/wamid/kommobot/internal/log"
	"github.com/wamid/kommobot/internal/oauth"
	"github.com/wamid/kommobot/internal/reply"
	"github.com/wamid/kommobot/internal/webhook"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the webhook server",
	Long:  "Serves the chat webhook, /health and the OAuth callback page until SIGINT or SIGTERM.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runStart(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(ctx context.Context, cfg *config.Config) error {
	if err := log.Setup(log.Options{
		Level:  cfg.Service.LogLevel,
		Format: cfg.Service.LogFormat,
		File:   cfg.Service.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Logging to stdout only: %v\n", err)
	}
	defer log.Close()

	logger := log.WithComponent("main")
	source := cfg.SourcePath
	if source == "" {
		source = "environment"
	}
	logger.Info("kommobot starting", "version", version, "config", source)

	if cfg.Service.PIDFile != "" {
		pidLock, err := lock.Acquire(cfg.Service.PIDFile)
		if err != nil {
			logger.Error("failed to acquire PID lock", "path", cfg.Service.PIDFile, "error", err)
			return err
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", pidLock.Path())
	}

	srv, err := buildServer(cfg, log.Get())
	if err != nil {
		logger.Error("failed to build server", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("kommobot stopped")
	return nil
}

// buildServer wires classifier, dispatcher and routes from cfg. The
// dispatcher only exists when an access token is configured.
func buildServer(cfg *config.Config, base *slog.Logger) (*webhook.Server, error) {
	rules, fallback := cfg.ReplyRules()
	classifier, err := reply.New(rules, fallback)
	if err != nil {
		return nil, fmt.Errorf("build reply rules: %w", err)
	}

	wcfg, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger := base.With("component", "webhook")
	logger.Info("reply rules loaded", "rules", classifier.Rules())

	var sender webhook.Sender
	if cfg.DispatchEnabled() {
		kcfg := kommo.Config{
			BaseURL:     cfg.Kommo.BaseURL,
			AccessToken: cfg.Kommo.AccessToken,
			Timeout:     cfg.Kommo.DispatchTimeout,
			MsgIDPrefix: cfg.Kommo.MsgIDPrefix,
		}
		sender = kommo.NewDispatcher(kcfg, kommo.NewClient(kcfg, nil), base.With("component", "kommo"))
	} else {
		logger.Warn("KOMMO_ACCESS_TOKEN not set; replies will not be sent")
	}

	if cfg.Webhook.Secret == "" {
		logger.Warn("CHAT_CHANNEL_SECRET not set; accepting unsigned webhooks")
	}

	srv := webhook.New(wcfg, classifier, sender, logger)
	srv.MountGet(oauth.CallbackPath, oauth.NewCallbackHandler(oauthConfig(cfg), base.With("component", "oauth")))
	return srv, nil
}

func oauthConfig(cfg *config.Config) oauth.Config {
	return oauth.Config{
		BaseURL:      cfg.Kommo.BaseURL,
		ClientID:     cfg.Kommo.ClientID,
		ClientSecret: cfg.Kommo.ClientSecret,
		RedirectURI:  cfg.Kommo.RedirectURI,
	}
}
