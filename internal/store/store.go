package store

import (
	"context"

	"github.com/feral-file/ff-track-indexer/internal/domain"
)

// Store is the change-indexed record store.
//
// Every Insert overwrites the primary record of its identity and appends one
// change-index entry in the same transaction, so readers never see one without the other.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Insert upserts the record and appends a change entry at rec.ID.BlockNumber
	Insert(ctx context.Context, rec domain.Record) error

	// Get returns the current record of an identity, or nil when absent
	Get(ctx context.Context, id domain.Identity) (*domain.Record, error)

	// GetChangedSince returns one record per change entry with from <= block < to,
	// ordered by (block, seq). Each record carries the entry's block and the current
	// primary value, and an identity written several times in the range appears several times.
	GetChangedSince(ctx context.Context, from, to uint64) ([]domain.Record, error)

	// LastChangeBlock returns the block of the last change entry in index order.
	// ok is false when the index is empty.
	LastChangeBlock(ctx context.Context) (block uint64, ok bool, err error)

	// Dump returns every current record written at or before block at, ordered by identity
	Dump(ctx context.Context, at uint64) ([]domain.Record, error)

	CursorStore

	// Close releases the underlying connection
	Close() error
}
