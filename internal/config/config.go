package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samsaffron/line-llm/internal/session"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Line    LineConfig     `mapstructure:"line" yaml:"line"`
	Backend BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Render  RenderConfig   `mapstructure:"render" yaml:"render"`
	Store   session.Config `mapstructure:"store" yaml:"store"`
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
	Log     LogConfig      `mapstructure:"log" yaml:"log"`
}

// LineConfig configures the LINE channel and webhook behaviour
type LineConfig struct {
	ChannelSecret      string `mapstructure:"channel_secret" yaml:"channel_secret"`
	ChannelAccessToken string `mapstructure:"channel_access_token" yaml:"channel_access_token"`
	WebhookPath        string `mapstructure:"webhook_path" yaml:"webhook_path"`
	ClearCommand       string `mapstructure:"clear_command" yaml:"clear_command"` // compared case-insensitively
	ClearReply         string `mapstructure:"clear_reply" yaml:"clear_reply"`
	ImagePrompt        string `mapstructure:"image_prompt" yaml:"image_prompt"` // query sent with uploaded images
	RichRendering      bool   `mapstructure:"rich_rendering" yaml:"rich_rendering"`
}

// BackendConfig selects and configures the conversational backend
type BackendConfig struct {
	Kind         string        `mapstructure:"kind" yaml:"kind"` // "dify" or "openai"
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Model        string        `mapstructure:"model" yaml:"model"`               // openai only
	Instructions string        `mapstructure:"instructions" yaml:"instructions"` // openai only
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RenderConfig struct {
	// LegacyTableLineRemoval removes every line equal to a table line, not only table lines
	LegacyTableLineRemoval bool `mapstructure:"legacy_table_line_removal" yaml:"legacy_table_line_removal"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

const (
	BackendDify   = "dify"
	BackendOpenAI = "openai"
)

// Defaults shared by Load and the setup wizard
const (
	DefaultWebhookPath  = "/callback"
	DefaultClearCommand = "/clearconversationhistory"
	DefaultClearReply   = "SYSTEM: Session history in Dify cleared."
	DefaultImagePrompt  = "Please describe this image."
	DefaultDifyBaseURL  = "https://api.dify.ai/v1"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("line.webhook_path", DefaultWebhookPath)
	v.SetDefault("line.clear_command", DefaultClearCommand)
	v.SetDefault("line.clear_reply", DefaultClearReply)
	v.SetDefault("line.image_prompt", DefaultImagePrompt)
	v.SetDefault("line.rich_rendering", true)
	v.SetDefault("backend.kind", BackendDify)
	v.SetDefault("backend.base_url", DefaultDifyBaseURL)
	v.SetDefault("backend.model", "gpt-5.2")
	v.SetDefault("backend.timeout", 60*time.Second)
	v.SetDefault("render.legacy_table_line_removal", false)
	v.SetDefault("store.backend", session.BackendSQLite)
	v.SetDefault("store.max_entries", 10000)
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yaml from the config dir or the working directory.
// A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	setDefaults(v)

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveLineCredentials(&cfg.Line)
	resolveBackendCredentials(&cfg.Backend)
	cfg.Store.Path = expandHome(expandEnv(cfg.Store.Path))

	return &cfg, nil
}

// Defaults returns a Config holding only default values.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static; decoding cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Line.ChannelSecret == "" || c.Line.ChannelAccessToken == "" {
		return fmt.Errorf("line.channel_secret and line.channel_access_token are required (or set LINE_CHANNEL_SECRET / LINE_CHANNEL_ACCESS_TOKEN)")
	}
	switch c.Backend.Kind {
	case BackendDify:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend.base_url is required for dify")
		}
	case BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend.kind %q (want dify or openai)", c.Backend.Kind)
	}
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required for %s", c.Backend.Kind)
	}
	if !strings.HasPrefix(c.Line.WebhookPath, "/") {
		return fmt.Errorf("line.webhook_path must start with /: %q", c.Line.WebhookPath)
	}
	return nil
}

// Addr returns the host:port the server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// resolveLineCredentials resolves LINE channel credentials
func resolveLineCredentials(cfg *LineConfig) {
	cfg.ChannelSecret = expandEnv(cfg.ChannelSecret)
	if cfg.ChannelSecret == "" {
		cfg.ChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	}
	cfg.ChannelAccessToken = expandEnv(cfg.ChannelAccessToken)
	if cfg.ChannelAccessToken == "" {
		cfg.ChannelAccessToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	}
}

// resolveBackendCredentials resolves the backend API key for the selected kind
func resolveBackendCredentials(cfg *BackendConfig) {
	cfg.Kind = strings.ToLower(strings.TrimSpace(cfg.Kind))
	cfg.BaseURL = expandEnv(cfg.BaseURL)
	cfg.APIKey = expandEnv(cfg.APIKey)
	if cfg.APIKey == "" {
		switch cfg.Kind {
		case BackendDify:
			cfg.APIKey = os.Getenv("DIFY_API_KEY")
		case BackendOpenAI:
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	// The dify default URL makes no sense for openai; let the SDK pick its own
	if cfg.Kind == BackendOpenAI && cfg.BaseURL == DefaultDifyBaseURL {
		cfg.BaseURL = ""
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetConfigDir returns the XDG config directory for line-llm.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "line-llm"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "line-llm"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// NeedsSetup returns true if config file doesn't exist
func NeedsSetup() bool {
	return !Exists()
}

// Save writes the whole config to disk, replacing any existing file
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fileConfig(cfg)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	return os.WriteFile(path, buf.Bytes(), 0600)
}

// fileConfig converts durations to strings so the YAML stays readable.
func fileConfig(cfg *Config) map[string]any {
	return map[string]any{
		"line": cfg.Line,
		"backend": map[string]any{
			"kind":         cfg.Backend.Kind,
			"base_url":     cfg.Backend.BaseURL,
			"api_key":      cfg.Backend.APIKey,
			"model":        cfg.Backend.Model,
			"instructions": cfg.Backend.Instructions,
			"timeout":      cfg.Backend.Timeout.String(),
		},
		"render": cfg.Render,
		"store": map[string]any{
			"backend":     cfg.Store.Backend,
			"path":        cfg.Store.Path,
			"max_entries": cfg.Store.MaxEntries,
			"ttl":         cfg.Store.TTL.String(),
		},
		"server": cfg.Server,
		"log":    cfg.Log,
	}
}

// SetServeLineConfig stores LINE credentials from the setup wizard,
// keeping the rest of the config file intact.
func SetServeLineConfig(channelSecret, channelAccessToken string) error {
	if err := SetValue("line.channel_secret", channelSecret); err != nil {
		return err
	}
	return SetValue("line.channel_access_token", channelAccessToken)
}

// SetServeBackendConfig stores backend settings from the setup wizard.
func SetServeBackendConfig(kind, baseURL, apiKey string) error {
	if err := SetValue("backend.kind", kind); err != nil {
		return err
	}
	if baseURL != "" {
		if err := SetValue("backend.base_url", baseURL); err != nil {
			return err
		}
	}
	return SetValue("backend.api_key", apiKey)
}
