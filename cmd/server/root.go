package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"vendorwatch/internal/platform/config"
	"vendorwatch/internal/platform/logger"
)

// rootOptions is shared by every subcommand. Config and Logger are filled in
// by PersistentPreRunE.
type rootOptions struct {
	LogLevel string

	Config config.Config
	Logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vendorwatch",
		Short: "Vendor compliance expiry and escalation engine",
		Long: `vendorwatch scans mandatory vendor documents every day, reminds vendors
before documents expire, moves vendors with expired documents to
NEEDS_RENEWAL and escalates reviews that sat past the SLA.

Configuration is read from the environment; see COMPLIANCE_* and
DATABASE_URL, REDIS_URL, KAFKA_BROKERS, SMTP_ADDR.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.LogLevel != "" {
				cfg.Server.LogLevel = opts.LogLevel
			}
			opts.Config = cfg
			opts.Logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Server.LogLevel)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRunOnceCommand(opts))
	cmd.AddCommand(newIssueTokenCommand(opts))

	return cmd
}
