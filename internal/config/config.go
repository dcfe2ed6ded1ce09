package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"clawchat/internal/domain"
)

// Config is the root configuration for ClawChat.
type Config struct {
	General GeneralConfig  `json:"general" yaml:"general" toml:"general"`
	Gateway GatewayConfig  `json:"gateway" yaml:"gateway" toml:"gateway"`
	Storage StorageConfig  `json:"storage" yaml:"storage" toml:"storage"`
	UI      UIConfig       `json:"ui" yaml:"ui" toml:"ui"`
	Agents  []domain.Agent `json:"agents,omitempty" yaml:"agents,omitempty" toml:"agents,omitempty"`
	Models  []domain.Model `json:"models,omitempty" yaml:"models,omitempty" toml:"models,omitempty"`
}

type GeneralConfig struct {
	DataDir  string `json:"dataDir" yaml:"dataDir" toml:"dataDir"`
	LogLevel string `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty" toml:"logFile,omitempty"` // optional log file path
}

type GatewayConfig struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`
	Token          string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	ModelPrefix    string `json:"modelPrefix" yaml:"modelPrefix" toml:"modelPrefix"` // chat model is "<prefix>:<agentId>"
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds" toml:"timeoutSeconds"`
	// 0 = unlimited
	RateLimitPerMin int `json:"rateLimitPerMinute,omitempty" yaml:"rateLimitPerMinute,omitempty" toml:"rateLimitPerMinute,omitempty"`
	RateBurst       int `json:"rateBurst,omitempty" yaml:"rateBurst,omitempty" toml:"rateBurst,omitempty"`
}

type StorageConfig struct {
	Driver    string `json:"driver" yaml:"driver" toml:"driver"` // "sqlite" | "redis" | "memory"
	DBPath    string `json:"dbPath" yaml:"dbPath" toml:"dbPath"`
	RedisURL  string `json:"redisUrl,omitempty" yaml:"redisUrl,omitempty" toml:"redisUrl,omitempty"`
	KeyPrefix string `json:"keyPrefix,omitempty" yaml:"keyPrefix,omitempty" toml:"keyPrefix,omitempty"`
}

type UIConfig struct {
	Theme           string `json:"theme" yaml:"theme" toml:"theme"` // "dark" | "light"
	DefaultAgent    string `json:"defaultAgent" yaml:"defaultAgent" toml:"defaultAgent"`
	DefaultModel    string `json:"defaultModel" yaml:"defaultModel" toml:"defaultModel"`
	ToastMillis     int    `json:"toastMillis" yaml:"toastMillis" toml:"toastMillis"`
	SessionPageSize int    `json:"sessionPageSize" yaml:"sessionPageSize" toml:"sessionPageSize"`
	Markdown        bool   `json:"markdown" yaml:"markdown" toml:"markdown"` // render markdown file previews
	WordWrap        int    `json:"wordWrap" yaml:"wordWrap" toml:"wordWrap"`
}

// DefaultConfigDir returns the default config directory (~/.clawchat).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawchat"
	}
	return filepath.Join(home, ".clawchat")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file. The format follows the extension:
// .json, .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := decode(formatOf(path), data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset
// variable without a default is left as written.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := encode(formatOf(path), cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if _, err := ParseLogLevel(cfg.General.LogLevel); err != nil {
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if u, err := url.Parse(cfg.Gateway.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "gateway.baseUrl must be an absolute http(s) URL")
	}
	if strings.TrimSpace(cfg.Gateway.ModelPrefix) == "" {
		errs = append(errs, "gateway.modelPrefix is required")
	}
	if cfg.Gateway.TimeoutSeconds < 1 {
		errs = append(errs, "gateway.timeoutSeconds must be >= 1")
	}
	if cfg.Gateway.RateLimitPerMin < 0 {
		errs = append(errs, "gateway.rateLimitPerMinute must be >= 0")
	}
	if cfg.Gateway.RateBurst < 0 {
		errs = append(errs, "gateway.rateBurst must be >= 0")
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		if cfg.Storage.DBPath == "" {
			errs = append(errs, "storage.dbPath is required for the sqlite driver")
		}
	case "redis":
		if cfg.Storage.RedisURL == "" {
			errs = append(errs, "storage.redisUrl is required for the redis driver")
		}
	case "memory":
	default:
		errs = append(errs, "storage.driver must be one of: sqlite, redis, memory")
	}

	switch cfg.UI.Theme {
	case "dark", "light":
	default:
		errs = append(errs, "ui.theme must be one of: dark, light")
	}
	if cfg.UI.ToastMillis < 1 {
		errs = append(errs, "ui.toastMillis must be >= 1")
	}
	if cfg.UI.SessionPageSize < 1 {
		errs = append(errs, "ui.sessionPageSize must be >= 1")
	}
	if cfg.UI.WordWrap < 0 {
		errs = append(errs, "ui.wordWrap must be >= 0")
	}

	seen := make(map[string]bool)
	for i, a := range cfg.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("agents[%d]: id is required", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Sprintf("agents: duplicate id %s", a.ID))
		}
		seen[a.ID] = true
	}
	if cfg.UI.DefaultAgent != "" && len(cfg.Agents) > 0 && !seen[cfg.UI.DefaultAgent] {
		errs = append(errs, fmt.Sprintf("ui.defaultAgent references unknown agent: %s", cfg.UI.DefaultAgent))
	}

	if cfg.UI.DefaultModel != "" && len(cfg.Models) > 0 {
		found := false
		for _, m := range cfg.Models {
			if m.ID == cfg.UI.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf("ui.defaultModel references unknown model: %s", cfg.UI.DefaultModel))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLogLevel maps a config log level to a slog level. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
