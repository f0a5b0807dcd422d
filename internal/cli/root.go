package cli

import (
	"github.com/spf13/cobra"

	"github.com/skyyrose/toolgate/internal/config"
	"github.com/skyyrose/toolgate/internal/logger"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Toolgate - tool invocation governance",
	Long: `Toolgate governs tool calls made on behalf of language model agents.
It validates arguments, enforces permissions and rate limits, wraps execution
in circuit breakers and retries, and keeps an append-only audit ledger.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toolgate/toolgate.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; default from config)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// newLogger builds the CLI logger from config, with the --log-level flag
// taking precedence over the configured level.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	return logger.New(lc)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the CLI version
func GetVersion() string {
	return version
}
