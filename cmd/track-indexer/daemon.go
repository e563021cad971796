package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/api/server"
	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/replication"
)

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	var (
		from     uint64
		loopFlag bool
	)
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Serve the change index over JSON-RPC, optionally crawling new blocks in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			cfg := a.cfg

			srv := server.New(server.Config{
				Debug:        cfg.Debug,
				Host:         cfg.Daemon.Host,
				Port:         cfg.Daemon.Port,
				ReadTimeout:  cfg.Daemon.ReadTimeout,
				WriteTimeout: cfg.Daemon.WriteTimeout,
				IdleTimeout:  cfg.Daemon.IdleTimeout,
				CORSOrigins:  cfg.Daemon.CORSOrigins,
			}, replication.NewService(a.store, a.registry, cfg.Daemon.MaxSpan))

			var loop backgroundLoop
			if loopFlag {
				if err := a.connect(ctx); err != nil {
					return err
				}
				f, err := a.newFilter()
				if err != nil {
					return err
				}
				c := a.newCrawler()
				defer c.Close()

				loop = replication.NewDaemon(replication.DaemonConfig{
					ChainID:     cfg.Chain.ID,
					From:        from,
					CrawlStep:   cfg.Chain.CrawlStep,
					BreatheTime: cfg.Daemon.BreatheTime,
					Strategies:  cfg.Strategies,
				}, replication.DaemonDeps{
					Store:        a.store,
					Registry:     a.registry,
					Head:         a.head,
					Filter:       f,
					Crawler:      c,
					Strategies:   a.strategies,
					StrategyDeps: a.strategyDeps(),
					Clock:        a.clock,
				})
			}

			return runDaemon(ctx, srv, loop, 30*time.Second)
		},
	}
	cmd.Flags().Uint64Var(&from, "from", domain.DEFAULT_GENESIS_BLOCK, "First block to crawl when no cursor is stored")
	cmd.Flags().BoolVar(&loopFlag, "loop", false, "Crawl new blocks in the background")
	return cmd
}

type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

type backgroundLoop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// runDaemon serves until ctx is done or the server fails. A halted crawl loop
// leaves the server up so followers keep reading what was indexed; its error
// is returned once the process is told to stop.
func runDaemon(ctx context.Context, srv httpServer, loop backgroundLoop, shutdownTimeout time.Duration) error {
	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	var loopErrCh chan error
	if loop != nil {
		loopErrCh = make(chan error, 1)
		go func() {
			loopErrCh <- loop.Start(ctx)
		}()
	}

	var runErr error
	for serving := true; serving; {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Received shutdown signal")
			serving = false
		case err := <-srvErrCh:
			if err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", "server"))
				runErr = err
			}
			serving = false
		case err := <-loopErrCh:
			// a nil channel never fires again
			loopErrCh = nil
			if err != nil {
				logger.WarnCtx(ctx, "Crawl loop halted, still serving replication requests", zap.Error(err))
				runErr = err
			}
		}
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if loop != nil {
		if err := loop.Stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
