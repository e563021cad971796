package registry_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/mocks"
	"github.com/feral-file/ff-track-indexer/internal/registry"
)

func platform(name string) domain.Platform {
	return domain.Platform{Name: name}
}

func TestBaseline(t *testing.T) {
	baseline, err := registry.Baseline()
	require.NoError(t, err)
	assert.NotEmpty(t, baseline)
	for addr, p := range baseline {
		assert.Equal(t, domain.NormalizeAddress(addr), addr)
		assert.NotEmpty(t, p.Name)
	}
}

func TestParseContracts(t *testing.T) {
	c, err := registry.ParseContracts([]byte(`{"0xABC":{"name":"Sound","version":"1"}}`))
	require.NoError(t, err)
	require.Contains(t, c, "0xabc")
	assert.Equal(t, "Sound", c["0xabc"].Name)
	assert.Equal(t, "1", c["0xabc"].Metadata["version"])

	_, err = registry.ParseContracts([]byte(`{"0xabc":{"version":"1"}}`))
	assert.Error(t, err)
}

func TestContracts_MergeUserWins(t *testing.T) {
	baseline := registry.Contracts{"0xa": platform("Sound"), "0xb": platform("Zora")}
	user := registry.Contracts{"0xb": platform("CatalogV2"), "0xc": platform("Noizd")}

	merged := baseline.Merge(user)
	assert.Equal(t, "Sound", merged["0xa"].Name)
	assert.Equal(t, "CatalogV2", merged["0xb"].Name)
	assert.Equal(t, "Noizd", merged["0xc"].Name)
	assert.Equal(t, []string{"0xa", "0xb", "0xc"}, merged.Addresses())

	// inputs untouched
	assert.Equal(t, "Zora", baseline["0xb"].Name)
}

func TestOpen(t *testing.T) {
	baseline := registry.Contracts{"0xa": platform("Sound"), "0xb": platform("Zora")}

	t.Run("missing user file", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		fsys := mocks.NewMockFileSystem(ctrl)
		fsys.EXPECT().ReadFile("data/contracts.json").Return(nil, fs.ErrNotExist)

		reg, err := registry.Open(fsys, baseline, "data/contracts.json")
		require.NoError(t, err)
		assert.Equal(t, []string{"0xa", "0xb"}, reg.Addresses())
		assert.Empty(t, reg.UserContracts())
	})

	t.Run("user file overrides baseline", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		fsys := mocks.NewMockFileSystem(ctrl)
		fsys.EXPECT().ReadFile("data/contracts.json").Return([]byte(`{"0xB":{"name":"CatalogV2"}}`), nil)

		reg, err := registry.Open(fsys, baseline, "data/contracts.json")
		require.NoError(t, err)

		p, ok := reg.Lookup("0xb")
		require.True(t, ok)
		assert.Equal(t, "CatalogV2", p.Name)

		p, ok = reg.Lookup("0xA")
		require.True(t, ok)
		assert.Equal(t, "Sound", p.Name)

		_, ok = reg.Lookup("0xc")
		assert.False(t, ok)
	})

	t.Run("unreadable user file", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		fsys := mocks.NewMockFileSystem(ctrl)
		fsys.EXPECT().ReadFile("data/contracts.json").Return(nil, errors.New("permission denied"))

		_, err := registry.Open(fsys, baseline, "data/contracts.json")
		assert.Error(t, err)
	})

	t.Run("corrupt user file", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		fsys := mocks.NewMockFileSystem(ctrl)
		fsys.EXPECT().ReadFile("data/contracts.json").Return([]byte(`{`), nil)

		_, err := registry.Open(fsys, baseline, "data/contracts.json")
		assert.Error(t, err)
	})
}

func TestAddMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().ReadFile("contracts.json").Return([]byte(`{"0xc":{"name":"Sound"}}`), nil)

	reg, err := registry.Open(fsys, registry.Contracts{"0xa": platform("Zora")}, "contracts.json")
	require.NoError(t, err)

	var written []byte
	fsys.EXPECT().WriteFile("contracts.json", gomock.Any()).DoAndReturn(func(_ string, data []byte) error {
		written = data
		return nil
	})

	added, err := reg.AddMissing(registry.Contracts{
		"0xC": platform("CatalogV2"),
		"0xd": platform("SoundProtocol"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// local entry kept, new one added
	assert.Equal(t, "Sound", reg.UserContracts()["0xc"].Name)
	p, ok := reg.Lookup("0xd")
	require.True(t, ok)
	assert.Equal(t, "SoundProtocol", p.Name)

	persisted, err := registry.ParseContracts(written)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xc", "0xd"}, persisted.Addresses())

	// nothing new means no write
	added, err = reg.AddMissing(registry.Contracts{"0xd": platform("Zora")})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestAddMissing_WriteFailureKeepsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().ReadFile("contracts.json").Return(nil, fs.ErrNotExist)
	fsys.EXPECT().WriteFile("contracts.json", gomock.Any()).Return(errors.New("disk full"))

	reg, err := registry.Open(fsys, registry.Contracts{}, "contracts.json")
	require.NoError(t, err)

	_, err = reg.AddMissing(registry.Contracts{"0xd": platform("Sound")})
	require.Error(t, err)
	_, ok := reg.Lookup("0xd")
	assert.False(t, ok)
}
