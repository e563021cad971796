package gateway

import (
	"context"
	"math/rand/v2"
)

// HeadFetcher reads the chain head through a gateway, one random endpoint per call
type HeadFetcher struct {
	gw Gateway
}

// NewHeadFetcher creates a HeadFetcher
func NewHeadFetcher(gw Gateway) *HeadFetcher {
	return &HeadFetcher{gw: gw}
}

// FetchLatestBlock fetches the latest block number
func (f *HeadFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return f.gw.BlockNumber(ctx, RandomEndpoint(f.gw.Endpoints()))
}

// RandomEndpoint picks an endpoint uniformly at random. It returns "" for an empty list.
func RandomEndpoint(endpoints []string) string {
	if len(endpoints) == 0 {
		return ""
	}
	return endpoints[rand.IntN(len(endpoints))]
}
