package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wamid/kommobot/internal/reply"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load builds the configuration once at process start.
//
// configPath may be empty, in which case only defaults and the environment are
// used. A .env file next to the config file (or in the working directory when
// configPath is empty) is loaded first; it never overrides variables that are
// already set. If a .checksums manifest sits next to the config file, every
// file it lists must match before anything is parsed.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		if err := loadDotEnv("."); err != nil {
			return nil, err
		}
	} else {
		absPath, err := resolveConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		configDir := filepath.Dir(absPath)

		if err := VerifyChecksums(configDir); err != nil {
			return nil, err
		}
		if err := loadDotEnv(configDir); err != nil {
			return nil, err
		}
		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, err
		}
		cfg.SourcePath = absPath
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveConfigFile turns a file or directory argument into the absolute
// path of the YAML file.
func resolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		// Directory provided - look for config.yaml inside
		absPath = filepath.Join(absPath, ConfigFileName)
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but %s not found: %s", ConfigFileName, absPath)
		}
	}
	return absPath, nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfigFile decodes path over cfg. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	interpolated := interpolateEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolated)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR}
		varName := envVarPattern.FindStringSubmatch(match)[1]

		// Look up environment variable
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

func normalize(cfg *Config) {
	cfg.Service.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Service.LogLevel))
	cfg.Service.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Service.LogFormat))
	cfg.Kommo.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Kommo.BaseURL), "/")
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	// Credentials must not keep unresolved placeholders
	credentials := map[string]string{
		"webhook.secret":      cfg.Webhook.Secret,
		"kommo.access_token":  cfg.Kommo.AccessToken,
		"kommo.client_secret": cfg.Kommo.ClientSecret,
		"kommo.base_url":      cfg.Kommo.BaseURL,
		"kommo.client_id":     cfg.Kommo.ClientID,
		"kommo.redirect_uri":  cfg.Kommo.RedirectURI,
	}
	for field, value := range credentials {
		if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
		}
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if cfg.Webhook.RequireSecret && cfg.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret is required when webhook.require_secret is true")
	}

	if _, err := ParseSize(cfg.Webhook.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	if cfg.Kommo.AccessToken != "" && cfg.Kommo.BaseURL == "" {
		return fmt.Errorf("kommo.base_url is required when kommo.access_token is set")
	}

	if cfg.Kommo.DispatchTimeout <= 0 {
		return fmt.Errorf("kommo.dispatch_timeout must be positive")
	}

	rules, fallback := cfg.ReplyRules()
	if _, err := reply.New(rules, fallback); err != nil {
		return fmt.Errorf("replies: %w", err)
	}

	return nil
}

// ParseSize parses size strings like "1MB", "512KB", "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func ParseSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	// Handle unit suffixes (KB, MB, GB)
	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	// Parse numeric value
	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
