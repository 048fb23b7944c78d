package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wamid/kommobot/internal/oauth"
)

var exchangeCode string

var oauthCmd = &cobra.Command{
	Use:   "oauth",
	Short: "Kommo OAuth helpers",
}

var oauthExchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Exchange an authorization code for tokens",
	Long: `Trades the code shown on the /oauth/callback page for an access and refresh
token. Requires kommo.base_url, client_id, client_secret and redirect_uri.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ex, err := oauth.NewExchanger(oauthConfig(cfg), nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tok, err := ex.Exchange(ctx, exchangeCode)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "# Set these on the host; do not share them.")
		fmt.Fprintf(out, "KOMMO_ACCESS_TOKEN=%s\n", tok.AccessToken)
		if tok.RefreshToken != "" {
			fmt.Fprintf(out, "KOMMO_REFRESH_TOKEN=%s\n", tok.RefreshToken)
		}
		if !tok.Expiry.IsZero() {
			fmt.Fprintf(out, "# access token expires %s\n", tok.Expiry.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	oauthExchangeCmd.Flags().StringVar(&exchangeCode, "code", "", "Authorization code from the callback page")
	_ = oauthExchangeCmd.MarkFlagRequired("code")
	oauthCmd.AddCommand(oauthExchangeCmd)
	rootCmd.AddCommand(oauthCmd)
}
