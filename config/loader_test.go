package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaulta.yaml")
	data := `
store_path: /var/lib/vaulta/vault.db
key_iterations: 150000
report_prefix: ACME
domain: vault.example.com
smtp_host: smtp.example.com
smtp_port: 465
match_workers: 8
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFromFile(cfg, path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.StorePath != "/var/lib/vaulta/vault.db" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if cfg.KeyIterations != 150000 {
		t.Errorf("KeyIterations = %d", cfg.KeyIterations)
	}
	if cfg.ReportPrefix != "ACME" {
		t.Errorf("ReportPrefix = %q", cfg.ReportPrefix)
	}
	if cfg.SMTPPort != 465 {
		t.Errorf("SMTPPort = %d", cfg.SMTPPort)
	}
	if cfg.MatchWorkers != 8 {
		t.Errorf("MatchWorkers = %d", cfg.MatchWorkers)
	}
	// Fields absent from the file keep their defaults.
	if cfg.SendTimeout != DefaultSendTimeout {
		t.Errorf("SendTimeout = %v", cfg.SendTimeout)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := LoadFromFile(cfg, filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file should not error, got %v", err)
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store_path: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadFromFile(Default(), path); err == nil {
		t.Error("malformed file should error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VAULTA_STORE", "/tmp/env.db")
	t.Setenv("VAULTA_KEY_ITERATIONS", "200000")
	t.Setenv("VAULTA_SMTP_PORT", "2525")
	t.Setenv("VAULTA_SEND_TIMEOUT", "10")
	t.Setenv("VAULTA_MATCH_WORKERS", "2")

	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.StorePath != "/tmp/env.db" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if cfg.KeyIterations != 200000 {
		t.Errorf("KeyIterations = %d", cfg.KeyIterations)
	}
	if cfg.SMTPPort != 2525 {
		t.Errorf("SMTPPort = %d", cfg.SMTPPort)
	}
	if cfg.SendTimeout != 10*time.Second {
		t.Errorf("SendTimeout = %v", cfg.SendTimeout)
	}
	if cfg.MatchWorkers != 2 {
		t.Errorf("MatchWorkers = %d", cfg.MatchWorkers)
	}
}

func TestLoadFromEnvIgnoresEmptyAndInvalid(t *testing.T) {
	t.Setenv("VAULTA_STORE", "")
	t.Setenv("VAULTA_KEY_ITERATIONS", "not-a-number")

	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.StorePath != DefaultStorePath {
		t.Errorf("StorePath = %q, want default", cfg.StorePath)
	}
	if cfg.KeyIterations != DefaultKeyIterations {
		t.Errorf("KeyIterations = %d, want default", cfg.KeyIterations)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaulta.yaml")
	if err := os.WriteFile(path, []byte("domain: file.example.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VAULTA_DOMAIN", "env.example.com")

	cfg := Default()
	if err := LoadFromFile(cfg, path); err != nil {
		t.Fatal(err)
	}
	LoadFromEnv(cfg)

	if cfg.Domain != "env.example.com" {
		t.Errorf("Domain = %q, want the env value to win", cfg.Domain)
	}
}
