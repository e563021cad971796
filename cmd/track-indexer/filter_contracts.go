package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/logger"
)

func newFilterContractsCmd(opts *rootOptions) *cobra.Command {
	var flags blockFlags
	cmd := &cobra.Command{
		Use:   "filter-contracts",
		Short: "Discover platform contracts from factory events and add them to the user contracts file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connect(ctx); err != nil {
				return err
			}
			to, err := a.resolveTo(ctx, flags.toFlag(cmd))
			if err != nil {
				return err
			}
			if flags.from > to {
				return fmt.Errorf("--from %d is past --to %d", flags.from, to)
			}

			f, err := a.newFilter()
			if err != nil {
				return err
			}
			added, err := f.Run(ctx, flags.from, to, a.cfg.Strategies, a.registry)
			if err != nil {
				return err
			}
			logger.InfoCtx(ctx, "Contracts filtered",
				zap.Int("added", added),
				zap.String("path", a.cfg.Contracts.UserPath))
			return nil
		},
	}
	flags.register(cmd, "First block (inclusive)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
