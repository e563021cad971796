package replication_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/mocks"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/replication"
)

func TestFollower_AdvancesOverEmptyRanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)
	st := newStore(t)
	ctx := context.Background()

	remote.EXPECT().GetUserContracts(gomock.Any()).Return(registry.Contracts{}, nil)
	gomock.InOrder(
		remote.EXPECT().GetChangedSince(gomock.Any(), uint64(10), uint64(20)).Return(nil, nil),
		remote.EXPECT().GetChangedSince(gomock.Any(), uint64(20), uint64(30)).
			Return([]domain.Record{record("0xa", "1", 25, "one")}, nil),
		remote.EXPECT().GetChangedSince(gomock.Any(), uint64(30), uint64(36)).Return(nil, nil),
	)

	f := replication.NewFollower(replication.FollowerConfig{GenesisBlock: 10, MaxSpan: 10}, remote, st, newRegistry(t, nil))
	cursor, err := f.Sync(ctx, nil, 35)
	require.NoError(t, err)
	assert.Equal(t, uint64(36), cursor)

	rec, err := st.Get(ctx, domain.Identity{ChainID: "1", Address: "0xa", TokenID: "1"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint64(25), rec.ID.BlockNumber)

	// the next sync resumes at the last applied block
	resume, err := f.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), resume)
}

func TestFollower_StopsOnRemoteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteClient(ctrl)
	boom := errors.New("daemon unreachable")

	remote.EXPECT().GetUserContracts(gomock.Any()).Return(nil, nil)
	remote.EXPECT().GetChangedSince(gomock.Any(), uint64(0), uint64(5)).Return(nil, boom)

	from := uint64(0)
	f := replication.NewFollower(replication.FollowerConfig{MaxSpan: 5}, remote, newStore(t), newRegistry(t, nil))
	cursor, err := f.Sync(context.Background(), &from, 100)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(0), cursor)
}

func TestFollower_Converges(t *testing.T) {
	ctx := context.Background()
	primary := newStore(t)

	inserts := []domain.Record{
		record("0xa", "1", 100, "one"),
		record("0xb", "7", 100, "seven"),
		record("0xa", "2", 180, "two"),
		record("0xa", "1", 260, "one again"),
		record("0xc", "9", 999, "nine"),
	}
	for _, rec := range inserts {
		require.NoError(t, primary.Insert(ctx, rec))
	}

	daemonContracts := registry.Contracts{
		"0xa": {Name: "Sound"},
		"0xc": {Name: "Zora"},
	}
	srv := newDaemonServer(t, primary, newRegistry(t, daemonContracts), 50)

	remote, err := replication.DialRemote(ctx, srv.URL)
	require.NoError(t, err)
	defer remote.Close()

	follower := newStore(t)
	localContracts := newRegistry(t, registry.Contracts{"0xa": {Name: "CatalogV2"}})
	f := replication.NewFollower(replication.FollowerConfig{GenesisBlock: 1, MaxSpan: 50}, remote, follower, localContracts)

	cursor, err := f.Sync(ctx, nil, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), cursor)

	want, err := primary.Dump(ctx, 1000)
	require.NoError(t, err)
	got, err := follower.Dump(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantChanges, err := primary.GetChangedSince(ctx, 0, 1001)
	require.NoError(t, err)
	gotChanges, err := follower.GetChangedSince(ctx, 0, 1001)
	require.NoError(t, err)
	assert.Equal(t, wantChanges, gotChanges)

	// local entries win, remote entries fill gaps
	user := localContracts.UserContracts()
	assert.Equal(t, "CatalogV2", user["0xa"].Name)
	assert.Equal(t, "Zora", user["0xc"].Name)
}
