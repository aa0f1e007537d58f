package config

import "time"

// Config is the root configuration for taskhub.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Database      DatabaseConfig      `yaml:"database"`
	Tasks         TasksConfig         `yaml:"tasks"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	Redis         RedisConfig         `yaml:"redis"`
}

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	PublicURL    string `yaml:"public_url"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	ExposeErrors bool   `yaml:"expose_errors"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SecretDir  string        `yaml:"secret_dir"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type TasksConfig struct {
	// VerifyAssignee rejects assignments to users that do not exist.
	VerifyAssignee bool `yaml:"verify_assignee"`
}

type NotificationsConfig struct {
	ListLimit int `yaml:"list_limit"`
}

type RealtimeConfig struct {
	SSEBuffer  int           `yaml:"sse_buffer"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	MCPEnabled bool          `yaml:"mcp_enabled"`
}

type RedisConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Channel        string        `yaml:"channel"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8430,
			LogLevel: "info",
		},
		Auth: AuthConfig{
			SecretDir:  "~/.config/taskhub",
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 10,
		},
		Database: DatabaseConfig{
			Path: "~/.config/taskhub/taskhub.db",
		},
		Notifications: NotificationsConfig{
			ListLimit: 50,
		},
		Realtime: RealtimeConfig{
			SSEBuffer:  64,
			Heartbeat:  25 * time.Second,
			MCPEnabled: true,
		},
		Redis: RedisConfig{
			Channel:        "taskhub:events",
			PublishTimeout: 2 * time.Second,
		},
	}
}
