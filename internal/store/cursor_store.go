package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-track-indexer/internal/store/schema"
)

// CursorStore persists how far a background crawl has progressed
type CursorStore interface {
	// GetBlockCursor returns the last crawled block for a chain; ok is false when none was saved
	GetBlockCursor(ctx context.Context, chain string) (block uint64, ok bool, err error)
	// SetBlockCursor stores the last crawled block for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}

func blockCursorKey(chain string) string {
	return fmt.Sprintf("block_cursor:%s", chain)
}

func getBlockCursor(ctx context.Context, db *gorm.DB, chain string) (uint64, bool, error) {
	var kv schema.KeyValueStore
	err := db.WithContext(ctx).Where("key = ?", blockCursorKey(chain)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse block cursor: %w", err)
	}
	return blockNumber, true, nil
}

func setBlockCursor(ctx context.Context, db *gorm.DB, chain string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   blockCursorKey(chain),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}
	return nil
}
