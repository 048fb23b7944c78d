package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamid/kommobot/internal/reply"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config",
			yaml: `
server:
  port: 8080
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "/chat/webhook", cfg.Webhook.Path)
				assert.Equal(t, "100KB", cfg.Webhook.MaxBodySize)
				assert.Equal(t, "X-Signature", cfg.Webhook.SignatureHeader)
				assert.Equal(t, 10*time.Second, cfg.Kommo.DispatchTimeout)
				assert.Equal(t, "wamid-", cfg.Kommo.MsgIDPrefix)
				assert.False(t, cfg.DispatchEnabled())
			},
		},
		{
			name: "full config",
			yaml: `
service:
  name: wamid
  log_level: DEBUG
  log_format: console
server:
  host: 127.0.0.1
  port: 3001
webhook:
  path: /hooks/kommo
  secret: channel-secret
  signature_header: X-Hub-Signature
  max_body_size: 256KB
  async_dispatch: true
kommo:
  base_url: https://wamid.kommo.com/
  access_token: tok
  dispatch_timeout: 3s
  msgid_prefix: bot-
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Service.LogLevel)
				assert.Equal(t, "console", cfg.Service.LogFormat)
				assert.Equal(t, "127.0.0.1:3001", cfg.Server.Listen())
				assert.Equal(t, "/hooks/kommo", cfg.Webhook.Path)
				assert.Equal(t, "channel-secret", cfg.Webhook.Secret)
				assert.Equal(t, "X-Hub-Signature", cfg.Webhook.SignatureHeader)
				assert.True(t, cfg.Webhook.AsyncDispatch)
				assert.Equal(t, "https://wamid.kommo.com", cfg.Kommo.BaseURL)
				assert.Equal(t, 3*time.Second, cfg.Kommo.DispatchTimeout)
				assert.Equal(t, "bot-", cfg.Kommo.MsgIDPrefix)
				assert.True(t, cfg.DispatchEnabled())
			},
		},
		{
			name: "env interpolation",
			yaml: `
webhook:
  secret: ${TEST_KOMMOBOT_SECRET}
`,
			env: map[string]string{"TEST_KOMMOBOT_SECRET": "from-env"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.Webhook.Secret)
			},
		},
		{
			name: "unresolved placeholder",
			yaml: `
kommo:
  access_token: ${TEST_KOMMOBOT_UNSET_TOKEN}
`,
			wantErr: "TEST_KOMMOBOT_UNSET_TOKEN",
		},
		{
			name: "environment overrides file",
			yaml: `
server:
  port: 8080
kommo:
  base_url: https://file.kommo.com
`,
			env: map[string]string{
				"PORT":                "9090",
				"KOMMO_BASE_URL":      "https://env.kommo.com",
				"KOMMO_ACCESS_TOKEN":  "env-token",
				"CHAT_CHANNEL_SECRET": "env-secret",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "https://env.kommo.com", cfg.Kommo.BaseURL)
				assert.Equal(t, "env-token", cfg.Kommo.AccessToken)
				assert.Equal(t, "env-secret", cfg.Webhook.Secret)
			},
		},
		{
			name: "unknown key rejected",
			yaml: `
webhook:
  secrte: typo
`,
			wantErr: "secrte",
		},
		{
			name: "invalid log level",
			yaml: `
service:
  log_level: verbose
`,
			wantErr: "LogLevel",
		},
		{
			name: "invalid port",
			yaml: `
server:
  port: 70000
`,
			wantErr: "Port",
		},
		{
			name: "path must be absolute",
			yaml: `
webhook:
  path: chat/webhook
`,
			wantErr: "Path",
		},
		{
			name: "require_secret without secret",
			yaml: `
webhook:
  require_secret: true
`,
			wantErr: "webhook.secret is required",
		},
		{
			name: "bad max body size",
			yaml: `
webhook:
  max_body_size: huge
`,
			wantErr: "max_body_size",
		},
		{
			name: "token without base url",
			yaml: `
kommo:
  access_token: tok
`,
			wantErr: "kommo.base_url is required",
		},
		{
			name: "non-positive dispatch timeout",
			yaml: `
kommo:
  dispatch_timeout: 0s
`,
			wantErr: "dispatch_timeout",
		},
		{
			name: "custom reply rules",
			yaml: `
replies:
  rules:
    - name: hours
      keywords: [hours, open]
      response: "We are open 9-5"
  default: "Hello!"
`,
			checkFn: func(t *testing.T, cfg *Config) {
				rules, fallback := cfg.ReplyRules()
				require.Len(t, rules, 1)
				assert.Equal(t, "hours", rules[0].Name)
				assert.Equal(t, "Hello!", fallback)
			},
		},
		{
			name: "reply rule without keywords",
			yaml: `
replies:
  rules:
    - name: empty
      response: "nothing"
`,
			wantErr: "replies",
		},
		{
			name: "empty file uses defaults",
			yaml: "",
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := writeConfig(t, t.TempDir(), tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, cfg.SourcePath)
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("KOMMO_BASE_URL", "https://wamid.kommo.com")
	t.Setenv("KOMMO_ACCESS_TOKEN", "tok")
	t.Setenv("PORT", "4000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.SourcePath)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.True(t, cfg.DispatchEnabled())
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  port: 8081\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.SourcePath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "directory provided")
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "TEST_KOMMOBOT_DOTENV_SECRET"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	writeConfig(t, dir, "webhook:\n  secret: ${"+key+"}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFileName), []byte(key+"=dotenv-value\n"), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-value", cfg.Webhook.Secret)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	const key = "TEST_KOMMOBOT_DOTENV_KEEP"
	t.Setenv(key, "process")

	dir := t.TempDir()
	writeConfig(t, dir, "webhook:\n  secret: ${"+key+"}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFileName), []byte(key+"=file\n"), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Webhook.Secret)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server:\n  port: 8080\n")

	_, err := GenerateChecksums(dir, false)
	require.NoError(t, err)

	_, err = Load(path)
	require.NoError(t, err)

	writeConfig(t, dir, "server:\n  port: 9999\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")
}

func TestReplyRules_Defaults(t *testing.T) {
	rules, fallback := Defaults().ReplyRules()
	assert.Equal(t, reply.DefaultRuleSpecs(), rules)
	assert.Equal(t, reply.WelcomeReply, fallback)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 100 * 1024, false},
		{"1024", 1024, false},
		{"512KB", 512 * 1024, false},
		{"1mb", 1024 * 1024, false},
		{" 2 MB ", 2 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"0", 0, true},
		{"-5KB", 0, true},
		{"abc", 0, true},
		{"99999999999999999GB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	t.Setenv(ConfigEnvVar, path)
	assert.Equal(t, path, Discover())

	t.Setenv(ConfigEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	got := Discover()
	if got != "" {
		// only a system-wide install can satisfy discovery here
		assert.Equal(t, filepath.Join("/etc", "kommobot", ConfigFileName), got)
	}
}

func TestLoad_GenericHostVarIgnored(t *testing.T) {
	t.Setenv("HOST", "build-box-42")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Listen())

	t.Setenv("KOMMOBOT_HOST", "127.0.0.1")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", cfg.Server.Listen())
}
