package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. YAML config file       (this file)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ── YAML file layer ──────────────────────────────────────────────────

// LoadFromFile overlays a YAML config file onto cfg. A missing file is
// not an error; a malformed one is.
func LoadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the VAULTA_ prefix.  Secrets (pepper,
// SMTP password, signing key) are expected to arrive this way in
// production rather than in the config file.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VAULTA_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := envInt("VAULTA_KEY_ITERATIONS"); v > 0 {
		cfg.KeyIterations = v
	}
	if v := os.Getenv("VAULTA_PEPPER"); v != "" {
		cfg.Pepper = v
	}
	if v := os.Getenv("VAULTA_EVAL_PUBLIC_KEY"); v != "" {
		cfg.EvalPublicKey = v
	}
	if v := os.Getenv("VAULTA_EVAL_SALT"); v != "" {
		cfg.EvalSalt = v
	}
	if v := os.Getenv("VAULTA_SIGNING_KEY"); v != "" {
		cfg.SigningKey = v
	}
	if v := os.Getenv("VAULTA_SIGNER_ID"); v != "" {
		cfg.SignerID = v
	}

	// Delivery
	if v := os.Getenv("VAULTA_REPORT_PREFIX"); v != "" {
		cfg.ReportPrefix = v
	}
	if v := os.Getenv("VAULTA_DELIVERY_ADDRESS"); v != "" {
		cfg.DeliveryAddress = v
	}
	if v := os.Getenv("VAULTA_DOMAIN"); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv("VAULTA_SMTP_HOST"); v != "" {
		cfg.SMTPHost = v
	}
	if v := envInt("VAULTA_SMTP_PORT"); v > 0 {
		cfg.SMTPPort = v
	}
	if v := os.Getenv("VAULTA_SMTP_USERNAME"); v != "" {
		cfg.SMTPUsername = v
	}
	if v := os.Getenv("VAULTA_SMTP_PASSWORD"); v != "" {
		cfg.SMTPPassword = v
	}
	if v := os.Getenv("VAULTA_FROM"); v != "" {
		cfg.FromAddress = v
	}
	if v := envInt("VAULTA_SEND_TIMEOUT"); v > 0 {
		cfg.SendTimeout = secondsDuration(v)
	}

	// Matching
	if v := envInt("VAULTA_MATCH_WORKERS"); v > 0 {
		cfg.MatchWorkers = v
	}

	// Output
	if v := envInt("VAULTA_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
