package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Track is the primary record table: the latest extracted value per token identity
type Track struct {
	ChainID string `gorm:"column:chain_id;primaryKey;type:text"`
	Address string `gorm:"column:address;primaryKey;type:text"`
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// BlockNumber is the block of the write that produced Value
	BlockNumber uint64         `gorm:"column:block_number;not null;index"`
	Value       datatypes.JSON `gorm:"column:value;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Track model
func (Track) TableName() string {
	return "tracks"
}
