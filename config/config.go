// Package config defines the runtime configuration for vaulta and
// provides helpers for decoding key material and validating settings.
package config

import (
	"encoding/base64"
	"time"

	verr "vaulta/internal/errors"
)

// Config holds every tuneable for a single vaulta instance.
type Config struct {
	// ── Storage ──────────────────────────────────────────────────────
	StorePath string `yaml:"store_path"`

	// ── Crypto ───────────────────────────────────────────────────────
	KeyIterations int    `yaml:"key_iterations"`
	Pepper        string `yaml:"pepper"`          // base64, 32 bytes decoded
	EvalPublicKey string `yaml:"eval_public_key"` // base64, 32 bytes decoded
	EvalSalt      string `yaml:"eval_salt"`       // HMAC key for anonymised identifiers
	SigningKey    string `yaml:"signing_key"`     // base64 ed25519 seed, optional
	SignerID      string `yaml:"signer_id"`       // identifier for signed submissions

	// ── Delivery ─────────────────────────────────────────────────────
	ReportPrefix    string        `yaml:"report_prefix"` // coordinator report ID prefix
	DeliveryAddress string        `yaml:"delivery_address"`
	Domain          string        `yaml:"domain"` // rendered into notification bodies
	SMTPHost        string        `yaml:"smtp_host"`
	SMTPPort        int           `yaml:"smtp_port"`
	SMTPUsername    string        `yaml:"smtp_username"`
	SMTPPassword    string        `yaml:"smtp_password"`
	FromAddress     string        `yaml:"from_address"`
	SendTimeout     time.Duration `yaml:"send_timeout"`

	// ── Matching ─────────────────────────────────────────────────────
	MatchWorkers int `yaml:"match_workers"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `yaml:"verbose"`
}

// ── Key material decoding ────────────────────────────────────────────

// DecodePepper returns the raw pepper bytes, or nil when unset.
func (c *Config) DecodePepper() ([]byte, error) {
	return decode32("pepper", c.Pepper)
}

// DecodeEvalPublicKey returns the evaluator public key bytes, or nil
// when unset.
func (c *Config) DecodeEvalPublicKey() ([]byte, error) {
	return decode32("eval-public-key", c.EvalPublicKey)
}

// DecodeSigningKey returns the ed25519 seed bytes, or nil when unset.
func (c *Config) DecodeSigningKey() ([]byte, error) {
	return decode32("signing-key", c.SigningKey)
}

func decode32(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, &verr.ConfigError{
			Field:   field,
			Message: "not valid base64",
			Hint:    "generate with: head -c 32 /dev/urandom | base64",
		}
	}
	if len(raw) != 32 {
		return nil, &verr.ConfigError{
			Field:   field,
			Value:   len(raw),
			Message: "must decode to exactly 32 bytes",
		}
	}
	return raw, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return &verr.ConfigError{
			Field:   "store",
			Message: "store path is required",
		}
	}
	if c.KeyIterations < MinKeyIterations {
		return &verr.ConfigError{
			Field:   "key-iterations",
			Value:   c.KeyIterations,
			Message: "below the minimum PBKDF2 iteration count",
			Hint:    "omit the flag to use the default",
		}
	}
	if _, err := c.DecodePepper(); err != nil {
		return err
	}
	if _, err := c.DecodeEvalPublicKey(); err != nil {
		return err
	}
	if _, err := c.DecodeSigningKey(); err != nil {
		return err
	}
	if c.SigningKey != "" && c.SignerID == "" {
		return &verr.ConfigError{
			Field:   "signer-id",
			Message: "signer id is required when a signing key is set",
		}
	}
	if c.DeliveryAddress != "" {
		if c.SMTPHost == "" {
			return &verr.ConfigError{
				Field:   "smtp-host",
				Message: "SMTP host is required when a delivery address is set",
			}
		}
		if c.FromAddress == "" {
			return &verr.ConfigError{
				Field:   "from",
				Message: "sender address is required when a delivery address is set",
			}
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			return &verr.ConfigError{
				Field:   "smtp-port",
				Value:   c.SMTPPort,
				Message: "port out of range 1-65535",
			}
		}
	}
	if c.MatchWorkers < 1 {
		return &verr.ConfigError{
			Field:   "match-workers",
			Value:   c.MatchWorkers,
			Message: "at least one matching worker is required",
		}
	}
	return nil
}
