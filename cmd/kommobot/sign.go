package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wamid/kommobot/internal/webhook"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign <file|->",
	Short: "Print the webhook signature for a request body",
	Long: `Computes the hex HMAC-SHA1 of the file's bytes with the channel secret,
as expected in the signature header. Use "-" to read the body from stdin.
The secret comes from --secret, else from the loaded configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := signSecret
		if secret == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			secret = cfg.Webhook.Secret
		}
		if secret == "" {
			return fmt.Errorf("no channel secret: pass --secret or set CHAT_CHANNEL_SECRET")
		}

		body, err := readBody(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), webhook.ComputeSignature(body, secret))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signSecret, "secret", "", "Channel secret (overrides configuration)")
	rootCmd.AddCommand(signCmd)
}

func readBody(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
