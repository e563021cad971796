package strategy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

type stubStrategy struct {
	name string
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Crawl(context.Context, domain.MintedToken) (*domain.Track, error) {
	return nil, nil
}

func descriptor(name string, creation uint64, deprecation *uint64) strategy.Descriptor {
	return strategy.Descriptor{
		Name:             name,
		CreationBlock:    creation,
		DeprecationBlock: deprecation,
		New:              func(strategy.Deps) strategy.Strategy { return stubStrategy{name: name} },
	}
}

func ptr(v uint64) *uint64 { return &v }

func TestDescriptorCovers(t *testing.T) {
	tests := []struct {
		name     string
		d        strategy.Descriptor
		from, to uint64
		expected bool
	}{
		{name: "unbounded after creation", d: descriptor("a", 100, nil), from: 100, to: 1_000_000, expected: true},
		{name: "starts before creation", d: descriptor("a", 100, nil), from: 99, to: 200, expected: false},
		{name: "ends at deprecation", d: descriptor("a", 100, ptr(200)), from: 150, to: 200, expected: true},
		{name: "ends after deprecation", d: descriptor("a", 100, ptr(200)), from: 150, to: 201, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.Covers(tt.from, tt.to))
		})
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := strategy.NewRegistry(descriptor("Sound", 1, nil), descriptor("Sound", 2, nil))
	assert.Error(t, err)

	_, err = strategy.NewRegistry(strategy.Descriptor{Name: "NoCtor"})
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	reg, err := strategy.NewRegistry(
		descriptor("Old", 10, ptr(500)),
		descriptor("Sound", 100, nil),
		descriptor("Zora", 1000, nil),
		descriptor("Disabled", 0, nil),
	)
	require.NoError(t, err)

	sel := reg.Select([]string{"Zora", "Sound", "Old", "Unknown"}, 400, 600, strategy.Deps{})

	// Old expires inside the range, Zora is not created yet, Disabled is not enabled
	assert.Equal(t, []string{"Sound"}, sel.Names())
	assert.Equal(t, 1, sel.Len())

	s, ok := sel.Lookup("Sound")
	require.True(t, ok)
	assert.Equal(t, "Sound", s.Name())

	_, ok = sel.Lookup("sound")
	assert.False(t, ok, "dispatch is exact match")
}

func TestSelect_DeclarationOrder(t *testing.T) {
	reg, err := strategy.NewRegistry(descriptor("B", 0, nil), descriptor("A", 0, nil))
	require.NoError(t, err)

	sel := reg.Select([]string{"A", "B"}, 0, 10, strategy.Deps{})
	assert.Equal(t, []string{"B", "A"}, sel.Names())
}

func TestNewSelection(t *testing.T) {
	sel := strategy.NewSelection(stubStrategy{name: "X"})
	_, ok := sel.Lookup("X")
	assert.True(t, ok)
	assert.Equal(t, 1, sel.Len())
}
