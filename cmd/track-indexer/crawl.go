package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/crawler"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/replication"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

// blockFlags holds --from and an optional --to
type blockFlags struct {
	from uint64
	to   uint64
}

func (f *blockFlags) register(cmd *cobra.Command, fromUsage string) {
	cmd.Flags().Uint64Var(&f.from, "from", 0, fromUsage)
	cmd.Flags().Uint64Var(&f.to, "to", 0, "Last block (inclusive); defaults to the chain head")
}

// toFlag returns --to when it was passed
func (f *blockFlags) toFlag(cmd *cobra.Command) *uint64 {
	if cmd.Flags().Changed("to") {
		return &f.to
	}
	return nil
}

func newCrawlCmd(opts *rootOptions) *cobra.Command {
	var flags blockFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl mints of known contracts in a block range into the store",
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

			c := a.newCrawler()
			defer c.Close()

			return crawlRange(ctx, c, a.registry, a.strategies, a.cfg.Strategies, a.strategyDeps(), flags.from, to, a.cfg.Chain.CrawlStep)
		},
	}
	flags.register(cmd, "First block (inclusive)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// crawlRange selects strategies once for the whole [from, to], so a strategy
// whose window covers only part of it stays out of every window, then crawls
// in windows of step blocks.
func crawlRange(ctx context.Context, c replication.Crawler, contracts crawler.Contracts, strategies *strategy.Registry,
	names []string, deps strategy.Deps, from, to, step uint64) error {
	sel := strategies.Select(names, from, to, deps)
	logger.InfoCtx(ctx, "Selected strategies",
		zap.Strings("strategies", sel.Names()),
		zap.Uint64("from", from),
		zap.Uint64("to", to))

	for _, w := range crawler.BlockRanges(from, to, step) {
		report, err := c.Crawl(ctx, w.From, w.To, contracts, sel)
		if err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Crawled window",
			zap.Uint64("from", w.From),
			zap.Uint64("to", w.To),
			zap.Int("stored", report.Stored),
			zap.Int("dropped", report.DroppedTotal()))
	}
	return nil
}
