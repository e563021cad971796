package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/replication"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		flags blockFlags
		url   string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate a daemon's change index and user contracts into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			to, err := a.resolveTo(ctx, flags.toFlag(cmd))
			if err != nil {
				return err
			}

			if url == "" {
				url = a.cfg.Follower.URL
			}
			remote, err := replication.DialRemote(ctx, url)
			if err != nil {
				return err
			}
			defer remote.Close()

			f := replication.NewFollower(replication.FollowerConfig{
				GenesisBlock: a.cfg.Follower.GenesisBlock,
				MaxSpan:      a.cfg.Follower.MaxSpan,
			}, remote, a.store, a.registry)

			var from *uint64
			if cmd.Flags().Changed("from") {
				from = &flags.from
			}
			cursor, err := f.Sync(ctx, from, to)
			if err != nil {
				return err
			}
			logger.InfoCtx(ctx, "Sync finished", zap.String("url", url), zap.Uint64("cursor", cursor))
			return nil
		},
	}
	flags.register(cmd, "First block; defaults to the last local change")
	cmd.Flags().StringVar(&url, "url", "", "Daemon JSON-RPC URL; defaults to follower.url")
	return cmd
}
