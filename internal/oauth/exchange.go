package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// TokenPath is the Kommo token endpoint, relative to the account base URL.
const TokenPath = "/oauth2/access_token"

// Exchanger trades an authorization code for Kommo tokens.
type Exchanger struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewExchanger validates cfg and builds an Exchanger. httpClient may be nil.
func NewExchanger(cfg Config, httpClient *http.Client) (*Exchanger, error) {
	var missing []string
	if cfg.BaseURL == "" {
		missing = append(missing, "kommo.base_url")
	}
	if cfg.ClientID == "" {
		missing = append(missing, "kommo.client_id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "kommo.client_secret")
	}
	if cfg.RedirectURI == "" {
		missing = append(missing, "kommo.redirect_uri")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("oauth exchange needs %s", strings.Join(missing, ", "))
	}

	return &Exchanger{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimRight(cfg.BaseURL, "/") + TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}, nil
}

// Exchange performs the authorization_code grant.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}

	tok, err := e.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}
