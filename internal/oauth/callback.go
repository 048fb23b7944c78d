// Package oauth serves the Kommo OAuth redirect page and exchanges
// authorization codes for tokens.
package oauth

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
)

// CallbackPath is where Kommo redirects after "Authorize".
const CallbackPath = "/oauth/callback"

// SecretPlaceholder stands in for the client secret in the rendered curl
// command. The real secret is never rendered.
const SecretPlaceholder = "YOUR_CLIENT_SECRET"

// Config carries the OAuth client settings used by the callback page and
// the exchanger.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

var pageTmpl = template.Must(template.New("callback").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wamid Kommo OAuth</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial;padding:24px;max-width:900px;margin:auto;line-height:1.5}
pre,code{background:#111;color:#eee;padding:2px 6px;border-radius:6px}
pre{padding:12px;overflow:auto}
</style>
</head>
<body>
{{- if .Code}}
<h1>Authorization code received</h1>
<p><b>code:</b> <code>{{.Code}}</code></p>
<p>Run this locally to mint tokens:</p>
<pre>curl -sS -X POST "{{.BaseURL}}/oauth2/access_token" \
  -H "Content-Type: application/json" \
  -d '{
    "client_id":"{{.ClientID}}",
    "client_secret":"{{.SecretPlaceholder}}",
    "grant_type":"authorization_code",
    "code":"{{.Code}}",
    "redirect_uri":"{{.RedirectURI}}"
  }'</pre>
<p>Or, where the client secret is configured:</p>
<pre>kommobot oauth exchange --code '{{.Code}}'</pre>
<p>Then set <code>KOMMO_ACCESS_TOKEN</code> on the host. Do not share tokens in chats or logs.</p>
{{- else}}
<h1>Wamid Kommo OAuth</h1>
<p>Endpoint is <b>ready</b>. Click <b>Authorize</b> in Kommo to get a code.</p>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Code              string
	BaseURL           string
	ClientID          string
	RedirectURI       string
	SecretPlaceholder string
}

// CallbackHandler renders the OAuth redirect page. It always answers 200.
type CallbackHandler struct {
	cfg    Config
	logger *slog.Logger
}

// NewCallbackHandler creates the handler for CallbackPath.
func NewCallbackHandler(cfg Config, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{cfg: cfg, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	data := pageData{
		Code:              code,
		BaseURL:           h.cfg.BaseURL,
		ClientID:          h.cfg.ClientID,
		RedirectURI:       h.cfg.RedirectURI,
		SecretPlaceholder: SecretPlaceholder,
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		h.logger.Error("render oauth page failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if code != "" {
		h.logger.Info("oauth authorization code received")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
