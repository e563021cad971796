package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/metrics"
	"github.com/feral-file/ff-track-indexer/internal/uri"
)

// Gateway is the only way the indexer reaches the chain and off-chain content.
// Every chain call names the endpoint it goes to; callers pick one of Endpoints().
//
//go:generate mockgen -source=gateway.go -destination=../mocks/gateway.go -package=mocks -mock_names=Gateway=MockGateway
type Gateway interface {
	// Endpoints lists the configured endpoint URLs in configuration order
	Endpoints() []string

	// FilterLogs runs eth_getLogs against endpoint
	FilterLogs(ctx context.Context, endpoint string, query ethereum.FilterQuery) ([]types.Log, error)

	// CallContract runs eth_call against endpoint at blockNumber (nil means latest)
	CallContract(ctx context.Context, endpoint string, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// BlockNumber runs eth_blockNumber against endpoint
	BlockNumber(ctx context.Context, endpoint string) (uint64, error)

	// Fetch returns off-chain content behind a token URI (ipfs://, ar://, data:, https://)
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Endpoint is one JSON-RPC host
type Endpoint struct {
	URL string
	// Key is sent as a bearer token when set
	Key string
}

// Config holds gateway configuration
type Config struct {
	Endpoints []Endpoint
	// RequestsPerSecond and Burst bound each endpoint independently
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MaxRetries bounds retries of one call after the first attempt
	MaxRetries uint64
	// RetryInitialInterval is the first backoff delay; defaults to 500ms
	RetryInitialInterval time.Duration
}

type host struct {
	client  adapter.EthClient
	limiter *rate.Limiter
}

type ethGateway struct {
	config    Config
	endpoints []string
	hosts     map[string]*host
	resolver  uri.Resolver
	metrics   *metrics.Gateway
}

// New dials every configured endpoint
func New(ctx context.Context, config Config, dialer adapter.EthClientDialer, resolver uri.Resolver) (Gateway, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}
	if config.RetryInitialInterval <= 0 {
		config.RetryInitialInterval = 500 * time.Millisecond
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	g := &ethGateway{
		config:   config,
		hosts:    make(map[string]*host, len(config.Endpoints)),
		resolver: resolver,
		metrics:  metrics.NewGateway(),
	}

	for _, ep := range config.Endpoints {
		if _, dup := g.hosts[ep.URL]; dup {
			continue
		}
		client, err := dialer.Dial(ctx, ep.URL, ep.Key)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to dial %s: %w", ep.URL, err)
		}
		g.hosts[ep.URL] = &host{
			client:  client,
			limiter: rate.NewLimiter(limit, burst),
		}
		g.endpoints = append(g.endpoints, ep.URL)
	}

	logger.Info("Gateway ready", zap.Strings("endpoints", g.endpoints))
	return g, nil
}

func (g *ethGateway) Endpoints() []string {
	out := make([]string, len(g.endpoints))
	copy(out, g.endpoints)
	return out
}

func (g *ethGateway) FilterLogs(ctx context.Context, endpoint string, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := g.call(ctx, endpoint, "eth_getLogs", func(ctx context.Context, c adapter.EthClient) error {
		var err error
		logs, err = c.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

func (g *ethGateway) CallContract(ctx context.Context, endpoint string, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := g.call(ctx, endpoint, "eth_call", func(ctx context.Context, c adapter.EthClient) error {
		var err error
		out, err = c.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}

func (g *ethGateway) BlockNumber(ctx context.Context, endpoint string) (uint64, error) {
	var n uint64
	err := g.call(ctx, endpoint, "eth_blockNumber", func(ctx context.Context, c adapter.EthClient) error {
		var err error
		n, err = c.BlockNumber(ctx)
		return err
	})
	return n, err
}

func (g *ethGateway) Fetch(ctx context.Context, u string) ([]byte, error) {
	return g.resolver.Fetch(ctx, u)
}

// Close closes every dialed client
func (g *ethGateway) Close() {
	for _, h := range g.hosts {
		h.client.Close()
	}
}

// call runs fn against endpoint behind its rate limiter, retrying transient failures
func (g *ethGateway) call(ctx context.Context, endpoint, method string, fn func(context.Context, adapter.EthClient) error) error {
	h, ok := g.hosts[endpoint]
	if !ok {
		return fmt.Errorf("unknown endpoint %q", endpoint)
	}

	started := time.Now()
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			g.metrics.ObserveRetry(method)
		}

		if err := h.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attemptCtx := ctx
		if g.config.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx, h.client)
		if err == nil {
			return nil
		}
		if !isRetryable(ctx, err) {
			return backoff.Permanent(err)
		}

		logger.WarnCtx(ctx, "RPC call failed, retrying",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.config.RetryInitialInterval
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, g.config.MaxRetries), ctx))
	g.metrics.Observe(method, err, started)
	if err != nil {
		return fmt.Errorf("%s on %s failed: %w", method, endpoint, err)
	}
	return nil
}

// isRetryable reports whether a failed attempt may succeed if repeated
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// -32005 is the de facto "limit exceeded" code used by public providers
		return rpcErr.ErrorCode() == -32005
	}

	// Timeouts of a single attempt and transport failures
	return true
}

// IsExecutionError reports whether err is a contract revert returned by the node.
// Other JSON-RPC errors (missing trie node, header not found) are node failures.
func IsExecutionError(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	// 3 carries revert data; older nodes report reverts under -32000 with this message
	return rpcErr.ErrorCode() == 3 || strings.Contains(strings.ToLower(rpcErr.Error()), "execution reverted")
}
