// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "gitping"
	DefaultPGSSLMode      = "disable"
	DefaultGitHubBaseURL  = "https://github.com"
	DefaultGitHubAPIURL   = "https://api.github.com"
	DefaultGitHubScope    = "repo"
	DefaultNotifyChannel  = "telegram"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	GitHub   GitHubConfig   `toml:"github"`
	Notify   NotifyConfig   `toml:"notify"`
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
	Slack    SlackConfig    `toml:"slack"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the management API admin credentials. Password is a
// bcrypt hash of the admin password, not the password itself.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// GitHubConfig holds the OAuth app client, device-flow endpoints, and
// the webhook settings used when registering push hooks.
type GitHubConfig struct {
	ClientID       string `toml:"client_id"`
	Scope          string `toml:"scope"`
	BaseURL        string `toml:"base_url"`
	APIBaseURL     string `toml:"api_base_url"`
	WebhookURL     string `toml:"webhook_url"`
	WebhookSecret  string `toml:"webhook_secret"`
	RegisterHooks  bool   `toml:"register_hooks"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NotifyConfig selects the outbound notification channel.
type NotifyConfig struct {
	Channel string `toml:"channel"`
}

// TelegramConfig holds the Telegram bot token.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
}

// DiscordConfig holds the Discord bot token.
type DiscordConfig struct {
	BotToken string `toml:"bot_token"`
}

// SlackConfig holds the Slack bot token.
type SlackConfig struct {
	BotToken string `toml:"bot_token"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		GitHub: GitHubConfig{
			Scope:      DefaultGitHubScope,
			BaseURL:    DefaultGitHubBaseURL,
			APIBaseURL: DefaultGitHubAPIURL,
		},
		Notify: NotifyConfig{
			Channel: DefaultNotifyChannel,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	cfg.Notify.Channel = strings.ToLower(strings.TrimSpace(cfg.Notify.Channel))
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = DefaultNotifyChannel
	}

	return cfg, nil
}
