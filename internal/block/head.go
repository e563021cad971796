package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/logger"
)

// head is the cached chain head
type head struct {
	number    uint64
	fetchedAt time.Time
}

// HeadProvider returns the block the indexer may crawl up to.
// It caches the chain head for a TTL so the daemon loop and CLI
// commands don't hit the RPC gateway on every call.
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head_provider.go -package=mocks -mock_names=HeadProvider=MockHeadProvider,BlockFetcher=MockBlockFetcher
type HeadProvider interface {
	// GetLatestBlock returns the latest crawlable block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)
}

// BlockFetcher is the interface for fetching the latest block from the blockchain
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block from the blockchain
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// Config holds configuration for the HeadProvider
type Config struct {
	// TTL is how long to cache the block number
	TTL time.Duration

	// StaleWindow is how long a cached head may still be served when fetching fails
	StaleWindow time.Duration

	// Confirmations is subtracted from the chain head so recent, reorg-prone blocks are left alone
	Confirmations uint64
}

type headProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu     sync.RWMutex
	cached *head
}

// NewHeadProvider creates a new HeadProvider with caching
func NewHeadProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) HeadProvider {
	return &headProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
	}
}

func (p *headProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && now.Sub(cached.fetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.number))
		return p.confirmed(cached.number), nil
	}

	logger.DebugCtx(ctx, "Fetching latest block number from gateway")
	number, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.number), zap.Error(err))
			return p.confirmed(cached.number), nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.cached = &head{number: number, fetchedAt: now}
	p.mu.Unlock()

	return p.confirmed(number), nil
}

func (p *headProvider) confirmed(number uint64) uint64 {
	if number < p.config.Confirmations {
		return 0
	}
	return number - p.config.Confirmations
}
