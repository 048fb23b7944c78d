// Package doctor reports risky or incomplete kommobot configuration.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/wamid/kommobot/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor inspects a configuration that has already passed Load.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor for a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateIntegrity(r)
	d.warnOpenMode(r)
	d.validateDispatch(r)
	d.warnOAuthFields(r)
	d.warnAsyncDispatch(r)
	d.warnShadowedRules(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateIntegrity re-checks the checksum manifest next to the config file.
func (d *Doctor) validateIntegrity(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	err := config.VerifyChecksumsStrict(filepath.Dir(d.cfg.SourcePath))
	switch {
	case errors.Is(err, config.ErrNoChecksums):
		d.addWarning(r, "integrity", "", "no .checksums manifest; run 'kommobot config lock' to pin config.yaml and .env")
	case err != nil:
		d.addError(r, "integrity", "", err.Error())
	}
}

func (d *Doctor) warnOpenMode(r *Result) {
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "security", "webhook.secret",
			"no channel secret configured; every webhook request is accepted unsigned")
	}
}

func (d *Doctor) validateDispatch(r *Result) {
	k := d.cfg.Kommo
	if k.AccessToken == "" {
		d.addWarning(r, "dispatch", "kommo.access_token",
			"no access token; replies are classified but never sent")
		return
	}

	u, err := url.Parse(k.BaseURL)
	if err != nil || u.Host == "" {
		d.addError(r, "dispatch", "kommo.base_url", fmt.Sprintf("base_url %q is not an absolute URL", k.BaseURL))
		return
	}
	if u.Scheme != "https" {
		d.addWarning(r, "security", "kommo.base_url",
			fmt.Sprintf("base_url uses %q; the access token is sent in clear text", u.Scheme))
	}
	if u.Path != "" {
		d.addWarning(r, "dispatch", "kommo.base_url",
			fmt.Sprintf("base_url has path %q; expected the account root like https://account.kommo.com", u.Path))
	}
}

// warnOAuthFields flags a partially configured OAuth client.
func (d *Doctor) warnOAuthFields(r *Result) {
	k := d.cfg.Kommo
	fields := map[string]string{
		"kommo.client_id":     k.ClientID,
		"kommo.client_secret": k.ClientSecret,
		"kommo.redirect_uri":  k.RedirectURI,
	}

	var missing []string
	set := 0
	for _, name := range []string{"kommo.client_id", "kommo.client_secret", "kommo.redirect_uri"} {
		if fields[name] == "" {
			missing = append(missing, name)
		} else {
			set++
		}
	}
	if set == 0 || len(missing) == 0 {
		return
	}
	d.addWarning(r, "oauth", strings.Join(missing, ","),
		"OAuth client partially configured; 'kommobot oauth exchange' needs client_id, client_secret and redirect_uri")
}

func (d *Doctor) warnAsyncDispatch(r *Result) {
	if d.cfg.Webhook.AsyncDispatch {
		d.addWarning(r, "webhook", "webhook.async_dispatch",
			"webhooks are acknowledged before the reply is sent; delivery failures are only visible in logs")
	}
}

// warnShadowedRules flags rules that can never match because an earlier
// rule's keyword is contained in every one of their keywords.
func (d *Doctor) warnShadowedRules(r *Result) {
	rules, _ := d.cfg.ReplyRules()

	var earlier []string
	for i, rule := range rules {
		if len(rule.Keywords) > 0 && allShadowed(rule.Keywords, earlier) {
			d.addWarning(r, "replies", fmt.Sprintf("replies.rules[%d]", i),
				fmt.Sprintf("rule %q is unreachable; an earlier rule matches all of its keywords", rule.Name))
		}
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				earlier = append(earlier, kw)
			}
		}
	}
}

func allShadowed(keywords, earlier []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		shadowed := false
		for _, e := range earlier {
			if strings.Contains(kw, e) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			return false
		}
	}
	return true
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	writeIssues(&b, "ERROR", r.Errors)
	writeIssues(&b, "WARN ", r.Warnings)

	return b.String()
}

func writeIssues(b *strings.Builder, label string, issues []Issue) {
	for _, i := range issues {
		if i.Field != "" {
			fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		} else {
			fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
		}
	}
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
