package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/crawler"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
	"github.com/feral-file/ff-track-indexer/internal/strategy/builtin"
)

type crawlCall struct {
	from, to uint64
	sel      *strategy.Selection
}

type recordingCrawler struct {
	calls []crawlCall
	err   error
}

func (c *recordingCrawler) Crawl(_ context.Context, from, to uint64, _ crawler.Contracts, sel *strategy.Selection) (*crawler.Report, error) {
	c.calls = append(c.calls, crawlCall{from: from, to: to, sel: sel})
	if c.err != nil {
		return nil, c.err
	}
	return &crawler.Report{}, nil
}

func TestCrawlRange_SelectsOverWholeRange(t *testing.T) {
	reg, err := builtin.Registry()
	require.NoError(t, err)

	c := &recordingCrawler{}
	names := []string{builtin.Sound, builtin.Zora, builtin.Noizd}

	// Sound starts at 13725565 and Noizd at 13470560, inside the range
	err = crawlRange(context.Background(), c, nil, reg, names, strategy.Deps{}, 13000000, 14000000, 400000)
	require.NoError(t, err)

	require.Len(t, c.calls, 3)
	assert.Equal(t, []crawlCall{
		{from: 13000000, to: 13399999, sel: c.calls[0].sel},
		{from: 13400000, to: 13799999, sel: c.calls[0].sel},
		{from: 13800000, to: 14000000, sel: c.calls[0].sel},
	}, c.calls)

	for _, call := range c.calls {
		assert.Same(t, c.calls[0].sel, call.sel)
		assert.Equal(t, []string{builtin.Zora}, call.sel.Names())
		_, ok := call.sel.Lookup(builtin.Sound)
		assert.False(t, ok)
	}
}

func TestCrawlRange_StopsOnError(t *testing.T) {
	reg, err := builtin.Registry()
	require.NoError(t, err)

	boom := errors.New("getLogs failed")
	c := &recordingCrawler{err: boom}

	err = crawlRange(context.Background(), c, nil, reg, builtin.Names(), strategy.Deps{}, 18000000, 18999999, 100000)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.calls, 1)
}
