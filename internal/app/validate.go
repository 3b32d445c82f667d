package app

import (
	"fmt"
	"os"

	"chathub/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, CHATHUB_DB_PATH env, or storage.db_path in config")
	}

	if eff.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is empty: set it in config or via CHATHUB_JWT_SECRET")
	}
	if len(eff.Config.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret is too short: need at least 16 bytes")
	}

	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if hb := eff.Config.Hub.HeartbeatMs; hb < 500 {
		return fmt.Errorf("hub.heartbeat_ms is too low: %d (minimum 500)", hb)
	}

	return nil
}
