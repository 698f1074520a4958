package app

import (
	"fmt"
	"os"

	"charchat/pkg/config"
	"charchat/pkg/logger"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// DB path must be present
	if p := eff.DBPath; p == "" {
		return fmt.Errorf("database path is empty: set --db flag, CHARCHAT_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key presence check if one is set
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

	// A missing completion key is survivable at startup; streams will fail
	// with a configuration error until it is set.
	if eff.Config.Completion.APIKey == "" && os.Getenv("CHARCHAT_COMPLETION_API_KEY") == "" {
		logger.Warn("completion_api_key_missing", "hint", "set CHARCHAT_COMPLETION_API_KEY or completion.api_key in config")
	}

	if r := eff.Config.Completion.Retry; r.MaxAttempts < 0 {
		return fmt.Errorf("completion.retry.max_attempts must not be negative")
	}

	return nil
}
