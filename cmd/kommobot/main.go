// Command kommobot runs the Wamid Kommo chat webhook bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wamid/kommobot/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kommobot",
	Short: "Kommo chat webhook bridge for the Wamid bot",
	Long: `kommobot receives Kommo chat webhooks, verifies their HMAC-SHA1 signature,
picks a canned reply by keyword and posts it back to the conversation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.yaml or its directory (default: $KOMMOBOT_CONFIG, ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath returns the --config value or the discovered file.
// An empty result means env-only configuration.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.Discover()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
