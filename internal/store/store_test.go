package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestRecord(address, tokenID string, block uint64, title string) domain.Record {
	return domain.Record{
		ID: domain.RecordID{
			Identity: domain.Identity{
				ChainID: "1",
				Address: address,
				TokenID: tokenID,
			},
			BlockNumber: block,
		},
		Value: json.RawMessage(fmt.Sprintf(`{"title":%q,"version":"1.0.0"}`, title)),
	}
}

func identities(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = fmt.Sprintf("%s@%d", r.ID.Identity.String(), r.ID.BlockNumber)
	}
	return out
}

// RunStoreTests runs the store contract against an implementation.
// initDB must return an empty store.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"InsertRejectsInvalidJSON", testInsertRejectsInvalidJSON},
		{"CanonicalValue", testCanonicalValue},
		{"CanonicalValueKeepsLargeNumbers", testCanonicalValueKeepsLargeNumbers},
		{"GetChangedSince", testGetChangedSince},
		{"GetChangedSinceKeepsDuplicates", testGetChangedSinceKeepsDuplicates},
		{"GetChangedSinceIdempotent", testGetChangedSinceIdempotent},
		{"LastChangeBlock", testLastChangeBlock},
		{"Dump", testDump},
		{"BlockCursor", testBlockCursor},
		{"ConcurrentInserts", testConcurrentInserts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

func testInsertAndGet(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing identity returns nil", func(t *testing.T) {
		rec, err := store.Get(ctx, domain.Identity{ChainID: "1", Address: "0xnone", TokenID: "1"})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("insert then get", func(t *testing.T) {
		in := buildTestRecord("0xabcd", "42", 18000042, "first")
		require.NoError(t, store.Insert(ctx, in))

		got, err := store.Get(ctx, in.ID.Identity)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.ID, got.ID)
		assert.JSONEq(t, string(in.Value), string(got.Value))
	})

	t.Run("later write supersedes", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, buildTestRecord("0xabcd", "42", 18000050, "second")))

		got, err := store.Get(ctx, domain.Identity{ChainID: "1", Address: "0xabcd", TokenID: "42"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(18000050), got.ID.BlockNumber)
		assert.JSONEq(t, `{"title":"second","version":"1.0.0"}`, string(got.Value))
	})
}

func testInsertRejectsInvalidJSON(t *testing.T, store Store) {
	ctx := context.Background()
	rec := buildTestRecord("0xabcd", "1", 10, "x")
	rec.Value = json.RawMessage(`{"title":`)

	err := store.Insert(ctx, rec)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	changes, err := store.GetChangedSince(ctx, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func testCanonicalValue(t *testing.T, store Store) {
	ctx := context.Background()
	rec := buildTestRecord("0xabcd", "7", 10, "x")
	rec.Value = json.RawMessage(`{ "version": "1.0.0",  "title": "x" }`)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.Get(ctx, rec.ID.Identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"title":"x","version":"1.0.0"}`, string(got.Value))
}

func testCanonicalValueKeepsLargeNumbers(t *testing.T, store Store) {
	ctx := context.Background()
	rec := buildTestRecord("0xabcd", "8", 10, "x")
	rec.Value = json.RawMessage(`{"title":"x","erc721":{"metadata":{"edition":12345678901234567891,"ratio":0.5}}}`)
	require.NoError(t, store.Insert(ctx, rec))

	want := `{"erc721":{"metadata":{"edition":12345678901234567891,"ratio":0.5}},"title":"x"}`

	got, err := store.Get(ctx, rec.ID.Identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, string(got.Value))

	changes, err := store.GetChangedSince(ctx, 10, 11)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, want, string(changes[0].Value))
}

func testGetChangedSince(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, buildTestRecord("0xb", "2", 200, "b")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "1", 100, "a")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xc", "3", 200, "c")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xd", "4", 300, "d")))

	t.Run("half open range ordered by block then insertion", func(t *testing.T) {
		got, err := store.GetChangedSince(ctx, 100, 300)
		require.NoError(t, err)
		assert.Equal(t, []string{"1/0xa/1@100", "1/0xb/2@200", "1/0xc/3@200"}, identities(got))
	})

	t.Run("upper bound excluded", func(t *testing.T) {
		got, err := store.GetChangedSince(ctx, 300, 301)
		require.NoError(t, err)
		assert.Equal(t, []string{"1/0xd/4@300"}, identities(got))

		got, err = store.GetChangedSince(ctx, 201, 300)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty or inverted range", func(t *testing.T) {
		got, err := store.GetChangedSince(ctx, 200, 200)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = store.GetChangedSince(ctx, 300, 100)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func testGetChangedSinceKeepsDuplicates(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "1", 100, "old")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xb", "1", 150, "other")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "1", 200, "new")))

	got, err := store.GetChangedSince(ctx, 0, 1000)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Both entries of 0xa resolve to the current value
	assert.Equal(t, "0xa", got[0].ID.Address)
	assert.Equal(t, "0xb", got[1].ID.Address)
	assert.Equal(t, "0xa", got[2].ID.Address)
	assert.JSONEq(t, `{"title":"new","version":"1.0.0"}`, string(got[0].Value))
	assert.JSONEq(t, `{"title":"new","version":"1.0.0"}`, string(got[2].Value))
	assert.Equal(t, uint64(100), got[0].ID.BlockNumber)
	assert.Equal(t, uint64(200), got[2].ID.BlockNumber)
}

func testGetChangedSinceIdempotent(t *testing.T, store Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", fmt.Sprint(i), uint64(100+i), "t")))
	}

	first, err := store.GetChangedSince(ctx, 100, 105)
	require.NoError(t, err)
	second, err := store.GetChangedSince(ctx, 100, 105)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
}

func testLastChangeBlock(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.LastChangeBlock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "1", 500, "a")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "2", 700, "b")))

	block, ok, err := store.LastChangeBlock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(700), block)
}

func testDump(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, buildTestRecord("0xb", "1", 100, "b1")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "2", 200, "a2")))
	require.NoError(t, store.Insert(ctx, buildTestRecord("0xa", "1", 300, "a1")))

	got, err := store.Dump(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"1/0xa/2@200", "1/0xb/1@100"}, identities(got))

	got, err = store.Dump(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"1/0xa/1@300", "1/0xa/2@200", "1/0xb/1@100"}, identities(got))
}

func testBlockCursor(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get non-existent cursor", func(t *testing.T) {
		_, ok, err := store.GetBlockCursor(ctx, "1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set and update cursor", func(t *testing.T) {
		require.NoError(t, store.SetBlockCursor(ctx, "1", 100))
		require.NoError(t, store.SetBlockCursor(ctx, "1", 200))

		cursor, ok, err := store.GetBlockCursor(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(200), cursor)
	})
}

func testConcurrentInserts(t *testing.T, store Store) {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Insert(ctx, buildTestRecord("0xa", fmt.Sprint(i), 100, "t"))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.GetChangedSince(ctx, 100, 101)
	require.NoError(t, err)
	assert.Len(t, got, n)
}
