package schema

import "time"

// ChangeIndexEntry is one row of the append-only change index.
// (BlockNumber, Seq) orders entries; Seq alone is unique store-wide.
type ChangeIndexEntry struct {
	Seq         int64     `gorm:"column:seq;primaryKey;autoIncrement;index:idx_change_index_block_seq,priority:2"`
	BlockNumber uint64    `gorm:"column:block_number;not null;index:idx_change_index_block_seq,priority:1"`
	ChainID     string    `gorm:"column:chain_id;not null;type:text"`
	Address     string    `gorm:"column:address;not null;type:text"`
	TokenID     string    `gorm:"column:token_id;not null;type:text"`
	ChangedAt   time.Time `gorm:"column:changed_at;autoCreateTime"`
}

// TableName specifies the table name for the ChangeIndexEntry model
func (ChangeIndexEntry) TableName() string {
	return "change_index"
}

// Models lists every table the store migrates
func Models() []any {
	return []any{
		&Track{},
		&ChangeIndexEntry{},
		&KeyValueStore{},
	}
}
