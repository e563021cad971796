package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/block"
	"github.com/feral-file/ff-track-indexer/internal/config"
	"github.com/feral-file/ff-track-indexer/internal/crawler"
	"github.com/feral-file/ff-track-indexer/internal/filter"
	"github.com/feral-file/ff-track-indexer/internal/gateway"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/store"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
	"github.com/feral-file/ff-track-indexer/internal/strategy/builtin"
	"github.com/feral-file/ff-track-indexer/internal/uri"
)

// app holds what the commands share. Chain access is opened on demand.
type app struct {
	cfg        *config.Config
	fs         adapter.FileSystem
	clock      adapter.Clock
	store      store.Store
	registry   registry.ContractRegistry
	strategies *strategy.Registry

	gw   gateway.Gateway
	head block.HeadProvider
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:   cfg,
		fs:    adapter.NewFileSystem(),
		clock: adapter.NewClock(),
	}

	var err error
	a.strategies, err = builtin.Registry()
	if err != nil {
		return nil, err
	}

	baseline, err := registry.Baseline()
	if err != nil {
		return nil, err
	}
	if cfg.Contracts.BaselinePath != "" {
		data, err := a.fs.ReadFile(cfg.Contracts.BaselinePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read baseline contracts: %w", err)
		}
		if baseline, err = registry.ParseContracts(data); err != nil {
			return nil, err
		}
	}
	a.registry, err = registry.Open(a.fs, baseline, cfg.Contracts.UserPath)
	if err != nil {
		return nil, err
	}

	a.store, err = openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.OpenPostgres(cfg.Database.DSN(), store.PoolSettings{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
	default:
		return store.OpenSQLite(cfg.Path)
	}
}

// connect dials the RPC hosts and sets up the head provider
func (a *app) connect(ctx context.Context) error {
	if a.gw != nil {
		return nil
	}
	if err := a.cfg.ValidateChainAccess(); err != nil {
		return err
	}

	endpoints := make([]gateway.Endpoint, len(a.cfg.Chain.RPC))
	for i, h := range a.cfg.Chain.RPC {
		endpoints[i] = gateway.Endpoint{URL: h.URL, Key: h.Key}
	}

	resolver := uri.NewResolver(
		adapter.NewHTTPClient(a.cfg.Content.HTTPTimeout, a.cfg.Content.MaxElapsed),
		uri.Config{IPFSGateway: a.cfg.Content.IPFSGateway, ArweaveGateway: a.cfg.Content.ArweaveGateway},
	)

	gw, err := gateway.New(ctx, gateway.Config{
		Endpoints:         endpoints,
		RequestsPerSecond: a.cfg.Gateway.RequestsPerSecond,
		Burst:             a.cfg.Gateway.Burst,
		Timeout:           a.cfg.Gateway.Timeout,
		MaxRetries:        a.cfg.Gateway.MaxRetries,
	}, adapter.NewEthClientDialer(), resolver)
	if err != nil {
		return err
	}
	a.gw = gw
	a.head = block.NewHeadProvider(gateway.NewHeadFetcher(gw), block.Config{
		TTL:           a.cfg.BlockHead.TTL,
		StaleWindow:   a.cfg.BlockHead.StaleWindow,
		Confirmations: a.cfg.BlockHead.Confirmations,
	}, a.clock)
	return nil
}

func (a *app) newCrawler() *crawler.Crawler {
	return crawler.New(crawler.Config{
		ChainID:     a.cfg.Chain.ID,
		BlockStep:   a.cfg.Chain.BlockStep,
		AddressStep: a.cfg.Chain.AddressStep,
		PoolSize:    a.cfg.Worker.PoolSize,
	}, a.gw, a.store)
}

func (a *app) newFilter() (*filter.Filter, error) {
	factories := make([]filter.Factory, len(a.cfg.Factories))
	for i, f := range a.cfg.Factories {
		factories[i] = filter.Factory{
			Strategy:     f.Strategy,
			Address:      f.Address,
			Event:        f.Event,
			AddressTopic: f.AddressTopic,
		}
	}
	return filter.New(filter.Config{BlockStep: a.cfg.Chain.BlockStep}, a.gw, factories)
}

func (a *app) strategyDeps() strategy.Deps {
	return strategy.Deps{Gateway: a.gw}
}

// resolveTo returns to when given, the crawlable chain head otherwise
func (a *app) resolveTo(ctx context.Context, to *uint64) (uint64, error) {
	if to != nil {
		return *to, nil
	}
	if err := a.connect(ctx); err != nil {
		return 0, err
	}
	head, err := a.head.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain head: %w", err)
	}
	return head, nil
}

func (a *app) Close() {
	if closer, ok := a.gw.(interface{ Close() }); ok {
		closer.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}
}
