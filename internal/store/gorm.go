package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/store/schema"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an already migrated gorm connection
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// trackRow is the projection GetChangedSince and Dump scan into
type trackRow struct {
	ChainID     string         `gorm:"column:chain_id"`
	Address     string         `gorm:"column:address"`
	TokenID     string         `gorm:"column:token_id"`
	BlockNumber uint64         `gorm:"column:block_number"`
	Value       datatypes.JSON `gorm:"column:value"`
}

func (r trackRow) toRecord() (domain.Record, error) {
	// jsonb reorders keys, so re-canonicalize on the way out too
	value, err := canonicalize(r.Value)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to canonicalize value of %s/%s/%s: %w", r.ChainID, r.Address, r.TokenID, err)
	}
	return domain.Record{
		ID: domain.RecordID{
			Identity: domain.Identity{
				ChainID: r.ChainID,
				Address: r.Address,
				TokenID: r.TokenID,
			},
			BlockNumber: r.BlockNumber,
		},
		Value: value,
	}, nil
}

func (s *gormStore) Insert(ctx context.Context, rec domain.Record) error {
	value, err := canonicalize(rec.Value)
	if err != nil {
		return fmt.Errorf("%w: value of %s is not valid JSON: %v", domain.ErrValidation, rec.ID.String(), err)
	}

	track := schema.Track{
		ChainID:     rec.ID.ChainID,
		Address:     rec.ID.Address,
		TokenID:     rec.ID.TokenID,
		BlockNumber: rec.ID.BlockNumber,
		Value:       datatypes.JSON(value),
	}
	entry := schema.ChangeIndexEntry{
		BlockNumber: rec.ID.BlockNumber,
		ChainID:     rec.ID.ChainID,
		Address:     rec.ID.Address,
		TokenID:     rec.ID.TokenID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "chain_id"},
				{Name: "address"},
				{Name: "token_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"block_number", "value", "updated_at"}),
		}).Create(&track).Error; err != nil {
			return fmt.Errorf("failed to upsert track: %w", err)
		}

		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append change entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", rec.ID.String(), err)
	}
	return nil
}

func (s *gormStore) Get(ctx context.Context, id domain.Identity) (*domain.Record, error) {
	var track schema.Track
	err := s.db.WithContext(ctx).
		Where("chain_id = ? AND address = ? AND token_id = ?", id.ChainID, id.Address, id.TokenID).
		First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track %s: %w", id.String(), err)
	}

	rec, err := trackRow{
		ChainID:     track.ChainID,
		Address:     track.Address,
		TokenID:     track.TokenID,
		BlockNumber: track.BlockNumber,
		Value:       track.Value,
	}.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) GetChangedSince(ctx context.Context, from, to uint64) ([]domain.Record, error) {
	if to <= from {
		return []domain.Record{}, nil
	}

	var rows []trackRow
	err := s.db.WithContext(ctx).
		Table(schema.ChangeIndexEntry{}.TableName()+" AS c").
		Select("c.chain_id, c.address, c.token_id, c.block_number, t.value").
		Joins("JOIN "+schema.Track{}.TableName()+" AS t ON t.chain_id = c.chain_id AND t.address = c.address AND t.token_id = c.token_id").
		Where("c.block_number >= ? AND c.block_number < ?", from, to).
		Order("c.block_number ASC, c.seq ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get changes in [%d, %d): %w", from, to, err)
	}

	return toRecords(rows)
}

func (s *gormStore) LastChangeBlock(ctx context.Context) (uint64, bool, error) {
	var entry schema.ChangeIndexEntry
	err := s.db.WithContext(ctx).
		Order("block_number DESC, seq DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last change entry: %w", err)
	}
	if entry.Seq == 0 {
		return 0, false, nil
	}
	return entry.BlockNumber, true, nil
}

func (s *gormStore) Dump(ctx context.Context, at uint64) ([]domain.Record, error) {
	var rows []trackRow
	err := s.db.WithContext(ctx).
		Model(&schema.Track{}).
		Select("chain_id, address, token_id, block_number, value").
		Where("block_number <= ?", at).
		Order("chain_id ASC, address ASC, token_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to dump tracks at %d: %w", at, err)
	}

	return toRecords(rows)
}

func (s *gormStore) GetBlockCursor(ctx context.Context, chain string) (uint64, bool, error) {
	return getBlockCursor(ctx, s.db, chain)
}

func (s *gormStore) SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error {
	return setBlockCursor(ctx, s.db, chain, blockNumber)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func toRecords(rows []trackRow) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
