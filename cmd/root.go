// Package cmd wires up the CLI and dispatches to the vault core.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vaulta/config"
)

// version is overridable at link time:
//
//	go build -ldflags "-X vaulta/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

var (
	cfg       *config.Config
	cfgFile   string
	ownerFlag string
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vaulta",
	Short: "Encrypted incident report vault",
	Long: `vaulta stores incident reports sealed under keys only their owners
hold. Escrowed matching entries let two survivors of the same
perpetrator find each other without the server ever reading a record,
and submissions to the coordinating organization go out as canonical,
signed documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config precedence: flags > env > file > defaults. The file
		// and env layers run here; flag overrides were bound directly
		// onto cfg fields at registration.
		base := config.Default()
		if err := config.LoadFromFile(base, cfgFile); err != nil {
			return fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		config.LoadFromEnv(base)
		overlayFlags(cmd, base)
		cfg = base

		zc := zap.NewProductionConfig()
		if cfg.Verbose > 0 {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// flagCfg receives raw flag values; overlayFlags copies only the flags
// the user actually set so env and file values survive.
var flagCfg config.Config

func overlayFlags(cmd *cobra.Command, dst *config.Config) {
	f := cmd.Flags()
	if f.Changed("store") {
		dst.StorePath = flagCfg.StorePath
	}
	if f.Changed("key-iterations") {
		dst.KeyIterations = flagCfg.KeyIterations
	}
	if f.Changed("report-prefix") {
		dst.ReportPrefix = flagCfg.ReportPrefix
	}
	if f.Changed("domain") {
		dst.Domain = flagCfg.Domain
	}
	if f.Changed("delivery-address") {
		dst.DeliveryAddress = flagCfg.DeliveryAddress
	}
	if f.Changed("smtp-host") {
		dst.SMTPHost = flagCfg.SMTPHost
	}
	if f.Changed("smtp-port") {
		dst.SMTPPort = flagCfg.SMTPPort
	}
	if f.Changed("from") {
		dst.FromAddress = flagCfg.FromAddress
	}
	if f.Changed("match-workers") {
		dst.MatchWorkers = flagCfg.MatchWorkers
	}
	if f.Changed("verbose") {
		dst.Verbose = flagCfg.Verbose
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "vaulta.yaml", "Config file path")
	pf.StringVar(&flagCfg.StorePath, "store", config.DefaultStorePath, "Vault database path")
	pf.IntVar(&flagCfg.KeyIterations, "key-iterations", config.DefaultKeyIterations, "PBKDF2 iteration count")
	pf.StringVar(&flagCfg.ReportPrefix, "report-prefix", config.DefaultReportPrefix, "Coordinator report ID prefix")
	pf.StringVar(&flagCfg.Domain, "domain", config.DefaultDomain, "Public domain rendered into notifications")
	pf.StringVar(&flagCfg.DeliveryAddress, "delivery-address", "", "Coordinator email address")
	pf.StringVar(&flagCfg.SMTPHost, "smtp-host", "", "SMTP relay host")
	pf.IntVar(&flagCfg.SMTPPort, "smtp-port", config.DefaultSMTPPort, "SMTP relay port")
	pf.StringVar(&flagCfg.FromAddress, "from", "", "Sender address for outgoing mail")
	pf.IntVar(&flagCfg.MatchWorkers, "match-workers", config.DefaultMatchWorkers, "Concurrent trial decryptions per matching run")
	pf.CountVarP(&flagCfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	pf.StringVar(&ownerFlag, "owner", "", "Owner identity (defaults to $USER)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vaulta %s\n", version)
	},
}

// owner resolves the acting owner identity.
func owner() string {
	if ownerFlag != "" {
		return ownerFlag
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Execute runs the CLI. It is the only entry point main uses.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
