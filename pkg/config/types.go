package config

import "fmt"

// Config is the main configuration struct, loaded from a YAML file and
// overlaid with CHATHUB_* environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Security  SecurityConfig  `yaml:"security"`
	Hub       HubConfig       `yaml:"hub"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig holds the embedded KV settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// AuthConfig holds token issuance settings. JWTSecret must be set for the
// server to start; TTLs are hours.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	AccessTTLHours  int    `yaml:"access_ttl_hours"`
	RefreshTTLHours int    `yaml:"refresh_ttl_hours"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
}

// SecurityConfig holds CORS, rate limiting and IP whitelist settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
}

// HubConfig tunes the realtime fan-out layer. The heartbeat and reconnect
// defaults match what deployed clients already assume.
type HubConfig struct {
	// HeartbeatMs is the ping interval in both directions.
	HeartbeatMs int `yaml:"heartbeat_ms"`
	// ReconnectDelayMs is advertised to clients in the hello frame; the
	// server itself never redials.
	ReconnectDelayMs int `yaml:"reconnect_delay_ms"`
	// SendBuffer is the per-session outbound queue; a full queue drops
	// the session.
	SendBuffer int `yaml:"send_buffer"`
	// MaxPageSize bounds listMessages pages.
	MaxPageSize int `yaml:"max_page_size"`
	// MaxContentLen bounds message content bytes.
	MaxContentLen int `yaml:"max_content_len"`
}

// RetentionConfig holds configuration for the automatic purge runner that
// removes soft-deleted messages and their receipts.
type RetentionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Cron      string `yaml:"cron"`
	Period    string `yaml:"period"`
	BatchSize int    `yaml:"batch_size"`
	DryRun    bool   `yaml:"dry_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// ApplyDefaults fills zero values with the defaults deployed clients
// expect (5000ms reconnect, 4000ms heartbeat).
func (c *Config) ApplyDefaults() {
	if c.Hub.HeartbeatMs == 0 {
		c.Hub.HeartbeatMs = 4000
	}
	if c.Hub.ReconnectDelayMs == 0 {
		c.Hub.ReconnectDelayMs = 5000
	}
	if c.Hub.SendBuffer == 0 {
		c.Hub.SendBuffer = 256
	}
	if c.Hub.MaxPageSize == 0 {
		c.Hub.MaxPageSize = 200
	}
	if c.Hub.MaxContentLen == 0 {
		c.Hub.MaxContentLen = 16 * 1024
	}
	if c.Auth.AccessTTLHours == 0 {
		c.Auth.AccessTTLHours = 24
	}
	if c.Auth.RefreshTTLHours == 0 {
		c.Auth.RefreshTTLHours = 24 * 7
	}
}
