package replication

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/block"
	"github.com/feral-file/ff-track-indexer/internal/crawler"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/metrics"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/store"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

// Crawler is the crawl step of a daemon cycle
type Crawler interface {
	Crawl(ctx context.Context, from, to uint64, contracts crawler.Contracts, sel *strategy.Selection) (*crawler.Report, error)
}

// ContractFilter is the contract discovery step of a daemon cycle
type ContractFilter interface {
	Run(ctx context.Context, from, to uint64, strategies []string, reg registry.ContractRegistry) (int, error)
}

// DaemonConfig holds daemon loop configuration
type DaemonConfig struct {
	ChainID string
	// From is the first block crawled when no cursor is stored yet
	From uint64
	// CrawlStep caps the blocks crawled by one cycle
	CrawlStep   uint64
	BreatheTime time.Duration
	Strategies  []string
}

// Daemon keeps the local store up to date with the chain: each cycle reads the
// head, discovers new contracts, crawls the new blocks and persists the cursor.
type Daemon struct {
	config       DaemonConfig
	store        store.Store
	registry     registry.ContractRegistry
	head         block.HeadProvider
	filter       ContractFilter
	crawler      Crawler
	strategies   *strategy.Registry
	strategyDeps strategy.Deps
	clock        adapter.Clock
	metrics      *metrics.Replication

	running   atomic.Bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// DaemonDeps are the collaborators of a Daemon. Filter may be nil.
type DaemonDeps struct {
	Store        store.Store
	Registry     registry.ContractRegistry
	Head         block.HeadProvider
	Filter       ContractFilter
	Crawler      Crawler
	Strategies   *strategy.Registry
	StrategyDeps strategy.Deps
	Clock        adapter.Clock
}

// NewDaemon creates a Daemon
func NewDaemon(config DaemonConfig, deps DaemonDeps) *Daemon {
	if config.CrawlStep == 0 {
		config.CrawlStep = 5000
	}
	return &Daemon{
		config:       config,
		store:        deps.Store,
		registry:     deps.Registry,
		head:         deps.Head,
		filter:       deps.Filter,
		crawler:      deps.Crawler,
		strategies:   deps.Strategies,
		strategyDeps: deps.StrategyDeps,
		clock:        deps.Clock,
		metrics:      metrics.NewReplication(),
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Start runs cycles until ctx is done, Stop is called or a cycle fails.
// A failed cycle halts the loop and its error is returned.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("daemon already started")
	}
	defer close(d.stoppedCh)

	// sleeping is interrupted by Stop; an in-flight cycle is not
	sleepCtx, cancelSleep := context.WithCancel(ctx)
	defer cancelSleep()
	go func() {
		select {
		case <-d.stopCh:
			cancelSleep()
		case <-sleepCtx.Done():
		}
	}()

	logger.InfoCtx(ctx, "Starting daemon loop",
		zap.Uint64("from", d.config.From),
		zap.Uint64("crawl_step", d.config.CrawlStep),
		zap.Duration("breathe_time", d.config.BreatheTime))

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Daemon loop stopping due to context cancellation")
			return nil
		case <-d.stopCh:
			logger.InfoCtx(ctx, "Daemon loop stop requested")
			return nil
		default:
		}

		caughtUp, err := d.Cycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			logger.ErrorCtx(ctx, fmt.Errorf("daemon loop halted: %w", err))
			return err
		}
		if !caughtUp {
			continue
		}

		if err := d.clock.SleepWithContext(sleepCtx, d.config.BreatheTime); err != nil {
			// woken by Stop or ctx, the next select exits
			continue
		}
	}
}

// Stop asks the loop to exit and waits for the in-flight cycle to finish
func (d *Daemon) Stop(ctx context.Context) error {
	if !d.running.Load() {
		return nil
	}
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}

	select {
	case <-d.stoppedCh:
		logger.InfoCtx(ctx, "Daemon loop stopped")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Daemon loop stop interrupted by context timeout")
		return ctx.Err()
	}
}

// Cycle crawls the next window of blocks after the cursor and reports whether
// the cursor has reached the head.
func (d *Daemon) Cycle(ctx context.Context) (caughtUp bool, err error) {
	var cursor uint64
	defer func() { d.metrics.ObserveCycle(err, cursor) }()

	head, err := d.head.GetLatestBlock(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get chain head: %w", err)
	}

	start := d.config.From
	stored, ok, err := d.store.GetBlockCursor(ctx, d.config.ChainID)
	if err != nil {
		return false, err
	}
	if ok {
		cursor = stored
		start = stored + 1
	} else if start > 0 {
		cursor = start - 1
	}

	if start > head {
		logger.DebugCtx(ctx, "Nothing to crawl", zap.Uint64("cursor", cursor), zap.Uint64("head", head))
		return true, nil
	}

	end := head
	if head-start >= d.config.CrawlStep {
		end = start + d.config.CrawlStep - 1
	}

	if d.filter != nil {
		if _, err := d.filter.Run(ctx, start, end, d.config.Strategies, d.registry); err != nil {
			return false, err
		}
	}

	sel := d.strategies.Select(d.config.Strategies, start, end, d.strategyDeps)
	report, err := d.crawler.Crawl(ctx, start, end, d.registry, sel)
	if err != nil {
		return false, err
	}

	if err := d.store.SetBlockCursor(ctx, d.config.ChainID, end); err != nil {
		return false, err
	}
	cursor = end

	logger.InfoCtx(ctx, "Daemon cycle finished",
		zap.Uint64("from", start),
		zap.Uint64("to", end),
		zap.Uint64("head", head),
		zap.Int("stored", report.Stored))
	return end == head, nil
}
