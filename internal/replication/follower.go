package replication

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/metrics"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/store"
)

// FollowerConfig holds follower configuration
type FollowerConfig struct {
	// GenesisBlock is where an empty store starts syncing from
	GenesisBlock uint64
	// MaxSpan is the width of one getChangedSince request
	MaxSpan uint64
}

// Follower replicates a daemon's change index into the local store
type Follower struct {
	config   FollowerConfig
	remote   RemoteClient
	store    store.Store
	registry registry.ContractRegistry
	metrics  *metrics.Replication
}

// NewFollower creates a Follower
func NewFollower(config FollowerConfig, remote RemoteClient, st store.Store, reg registry.ContractRegistry) *Follower {
	if config.GenesisBlock == 0 {
		config.GenesisBlock = domain.DEFAULT_GENESIS_BLOCK
	}
	if config.MaxSpan == 0 {
		config.MaxSpan = domain.DEFAULT_MAX_SPAN
	}
	return &Follower{
		config:   config,
		remote:   remote,
		store:    st,
		registry: reg,
		metrics:  metrics.NewReplication(),
	}
}

// Cursor returns where a sync resumes: the block of the last local change, or genesis
func (f *Follower) Cursor(ctx context.Context) (uint64, error) {
	last, ok, err := f.store.LastChangeBlock(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return f.config.GenesisBlock, nil
	}
	return last, nil
}

// Sync merges the daemon's contracts into the local registry, then applies
// every change in [from, to] in the daemon's order. A nil from resumes from Cursor.
// It returns the cursor reached, which is past to on success.
func (f *Follower) Sync(ctx context.Context, from *uint64, to uint64) (uint64, error) {
	cursor := uint64(0)
	if from != nil {
		cursor = *from
	} else {
		var err error
		if cursor, err = f.Cursor(ctx); err != nil {
			return 0, err
		}
	}

	if err := f.syncContracts(ctx); err != nil {
		return cursor, err
	}

	logger.InfoCtx(ctx, "Starting sync", zap.Uint64("from", cursor), zap.Uint64("to", to))

	if to == math.MaxUint64 {
		return cursor, fmt.Errorf("invalid sync target %d", to)
	}

	for cursor <= to {
		upper := to + 1
		if f.config.MaxSpan < upper-cursor {
			upper = cursor + f.config.MaxSpan
		}

		records, err := f.remote.GetChangedSince(ctx, cursor, upper)
		if err != nil {
			return cursor, fmt.Errorf("failed to get changes [%d, %d): %w", cursor, upper, err)
		}
		for _, rec := range records {
			if err := f.store.Insert(ctx, rec); err != nil {
				return cursor, fmt.Errorf("failed to apply %s: %w", rec.ID.String(), err)
			}
		}

		cursor = upper
		f.metrics.ObserveApplied(len(records), cursor)
		logger.InfoCtx(ctx, "Applied changes", zap.Uint64("cursor", cursor), zap.Int("records", len(records)))
	}
	return cursor, nil
}

// syncContracts fills gaps in the local user contracts with the daemon's; local entries win
func (f *Follower) syncContracts(ctx context.Context) error {
	remote, err := f.remote.GetUserContracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get remote contracts: %w", err)
	}
	added, err := f.registry.AddMissing(remote)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Merged remote contracts", zap.Int("remote", len(remote)), zap.Int("added", added))
	return nil
}
