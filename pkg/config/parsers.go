package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged view of flags, env and config file
// that the rest of the server consumes.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "env" or "config"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigEnvs reads CHATHUB_* environment variables into a fresh Config
// and reports whether any were present.
func ParseConfigEnvs() (*Config, bool) {
	envCfg := &Config{}
	envUsed := false
	parseList := func(v string) []string {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("CHATHUB_SERVER_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	}
	if v := os.Getenv("CHATHUB_DB_PATH"); v != "" {
		envUsed = true
		envCfg.Storage.DBPath = v
	}
	if v := os.Getenv("CHATHUB_JWT_SECRET"); v != "" {
		envUsed = true
		envCfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CHATHUB_CORS_ORIGINS"); v != "" {
		envUsed = true
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CHATHUB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CHATHUB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("CHATHUB_IP_WHITELIST"); v != "" {
		envUsed = true
		envCfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("CHATHUB_HEARTBEAT_MS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Hub.HeartbeatMs = n
		}
	}
	if v := os.Getenv("CHATHUB_RECONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Hub.ReconnectDelayMs = n
		}
	}
	if v := os.Getenv("CHATHUB_LOG_LEVEL"); v != "" {
		envUsed = true
		envCfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CHATHUB_RETENTION_ENABLED"); v != "" {
		envUsed = true
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			envCfg.Retention.Enabled = true
		}
	}
	if v := os.Getenv("CHATHUB_RETENTION_CRON"); v != "" {
		envUsed = true
		envCfg.Retention.Cron = v
	}
	return envCfg, envUsed
}

// overlay copies non-zero values from src onto dst.
func overlay(dst, src *Config) {
	if src.Server.Address != "" {
		dst.Server.Address = src.Server.Address
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Storage.DBPath != "" {
		dst.Storage.DBPath = src.Storage.DBPath
	}
	if src.Auth.JWTSecret != "" {
		dst.Auth.JWTSecret = src.Auth.JWTSecret
	}
	if len(src.Security.CORS.AllowedOrigins) > 0 {
		dst.Security.CORS.AllowedOrigins = src.Security.CORS.AllowedOrigins
	}
	if src.Security.RateLimit.RPS != 0 {
		dst.Security.RateLimit.RPS = src.Security.RateLimit.RPS
	}
	if src.Security.RateLimit.Burst != 0 {
		dst.Security.RateLimit.Burst = src.Security.RateLimit.Burst
	}
	if len(src.Security.IPWhitelist) > 0 {
		dst.Security.IPWhitelist = src.Security.IPWhitelist
	}
	if src.Hub.HeartbeatMs != 0 {
		dst.Hub.HeartbeatMs = src.Hub.HeartbeatMs
	}
	if src.Hub.ReconnectDelayMs != 0 {
		dst.Hub.ReconnectDelayMs = src.Hub.ReconnectDelayMs
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Retention.Enabled {
		dst.Retention.Enabled = true
	}
	if src.Retention.Cron != "" {
		dst.Retention.Cron = src.Retention.Cron
	}
}

// LoadEffective merges the config file (when present), CHATHUB_* env vars
// and flags into a single effective config. Flags explicitly set win over
// env, which wins over file.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfg := &Config{}
	source := "flags"

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	if fileCfg, err := Load(cfgPath); err == nil {
		cfg = fileCfg
		source = "config"
	} else if !os.IsNotExist(err) {
		return EffectiveConfigResult{}, err
	}

	if envCfg, used := ParseConfigEnvs(); used {
		overlay(cfg, envCfg)
		source = "env"
	}

	cfg.ApplyDefaults()

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}, nil
}
