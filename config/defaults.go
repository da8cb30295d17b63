package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultStorePath is the SQLite database file, relative to the
	// working directory unless overridden.
	DefaultStorePath = "vaulta.db"

	// DefaultKeyIterations is the PBKDF2 iteration count used to
	// stretch user keys and matching identifiers.
	DefaultKeyIterations = 100000

	// MinKeyIterations is the floor Validate enforces.
	MinKeyIterations = 10000

	// DefaultReportPrefix prefixes coordinator-facing report IDs.
	DefaultReportPrefix = "RPT"

	// DefaultDomain is rendered into notification bodies when no
	// public domain is configured.
	DefaultDomain = "localhost"

	// DefaultSMTPPort is the submission port for authenticated SMTP.
	DefaultSMTPPort = 587

	// DefaultSendTimeout bounds a single SMTP delivery attempt.
	DefaultSendTimeout = 30 * time.Second

	// DefaultMatchWorkers limits concurrent trial decryptions during a
	// matching run. Stretching is CPU-bound, so this tracks cores more
	// than I/O.
	DefaultMatchWorkers = 4
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		StorePath:     DefaultStorePath,
		KeyIterations: DefaultKeyIterations,
		ReportPrefix:  DefaultReportPrefix,
		Domain:        DefaultDomain,
		SMTPPort:      DefaultSMTPPort,
		SendTimeout:   DefaultSendTimeout,
		MatchWorkers:  DefaultMatchWorkers,
	}
}
