package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-track-indexer/internal/config"
	"github.com/feral-file/ff-track-indexer/internal/logger"
)

type rootOptions struct {
	configFile string
	envPath    string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Flush(2 * time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "track-indexer",
		Short:         "Index music NFT mints on EVM chains and replicate them between nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.ChdirRepoRoot()
			cfg, err := config.Load(opts.configFile, opts.envPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			opts.cfg = cfg

			// Initialize logger with sentry integration
			err = logger.Initialize(logger.Config{
				Debug:           cfg.Debug,
				SentryDSN:       cfg.SentryDSN,
				BreadcrumbLevel: zapcore.InfoLevel,
				Tags: map[string]string{
					"service": "track-indexer",
					"command": cmd.Name(),
					"chain":   cfg.Chain.ID,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.envPath, "env", "config/", "Path to environment files")

	root.AddCommand(
		newCrawlCmd(opts),
		newFilterContractsCmd(opts),
		newDumpCmd(opts),
		newDaemonCmd(opts),
		newSyncCmd(opts),
	)
	return root
}
