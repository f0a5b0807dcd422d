package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skyyrose/toolgate/internal/config"
	"github.com/skyyrose/toolgate/pkg/audit"
)

var auditTail int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit records",
	Long:  `Show the most recent invocation records from the audit ledger.`,
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().IntVarP(&auditTail, "tail", "n", 0, "number of records to show (default from config)")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer log.Close()

	n := auditTail
	if n <= 0 {
		n = cfg.Audit.TailDefault
	}
	zl := log.GetZerolog()
	zl.Debug().Str("path", cfg.Audit.Path).Int("tail", n).Msg("Reading audit ledger")

	records, err := audit.Tail(cfg.Audit.Path, n)
	if err != nil {
		return fmt.Errorf("failed to read audit ledger: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit records")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-8s  %-20s  caller=%s  %dms",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Status, rec.Tool, rec.Caller, rec.DurationMS)
		if rec.CacheHit {
			line += "  (cached)"
		}
		if rec.Degraded {
			line += "  (degraded)"
		}
		if rec.Reason != "" {
			line += "  reason=" + rec.Reason
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return nil
}
