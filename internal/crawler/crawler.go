package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/gateway"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/metrics"
	"github.com/feral-file/ff-track-indexer/internal/store"
	"github.com/feral-file/ff-track-indexer/internal/strategy"
)

// Reasons a log or token is dropped
const (
	DropMissingBlock    = "missing_block"
	DropInvalidLog      = "invalid_log"
	DropUnknownContract = "unknown_contract"
	DropDuplicate       = "duplicate"
	DropNoStrategy      = "no_strategy"
	DropNoTrack         = "no_track"
	DropInvalidMetadata = "invalid_metadata"
)

// Contracts is the contract lookup a crawl reads from
type Contracts interface {
	Lookup(address string) (domain.Platform, bool)
	Addresses() []string
}

// Config holds crawler configuration
type Config struct {
	ChainID     string
	BlockStep   uint64
	AddressStep int
	PoolSize    int
}

// Report summarizes one crawl. It is safe for concurrent updates.
type Report struct {
	mu      sync.Mutex
	Logs    int
	Stored  int
	Dropped map[string]int
}

func newReport() *Report {
	return &Report{Dropped: make(map[string]int)}
}

func (r *Report) addLogs(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Logs += n
}

func (r *Report) addStored() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stored++
}

func (r *Report) addDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dropped[reason]++
}

// DroppedTotal sums every drop reason
func (r *Report) DroppedTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Crawler turns Transfer logs of known contracts into stored records
type Crawler struct {
	config       Config
	gw           gateway.Gateway
	store        store.Store
	pool         pond.Pool
	metrics      *metrics.Crawler
	pickEndpoint func() string
}

// New creates a crawler. Close releases its worker pool.
func New(config Config, gw gateway.Gateway, st store.Store) *Crawler {
	if config.BlockStep == 0 {
		config.BlockStep = 799
	}
	if config.AddressStep <= 0 {
		config.AddressStep = 100
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 1
	}
	if config.ChainID == "" {
		config.ChainID = domain.DEFAULT_CHAIN_ID
	}

	return &Crawler{
		config:       config,
		gw:           gw,
		store:        st,
		pool:         pond.NewPool(config.PoolSize),
		metrics:      metrics.NewCrawler(config.ChainID),
		pickEndpoint: func() string { return gateway.RandomEndpoint(gw.Endpoints()) },
	}
}

// Close waits for in-flight tasks and stops the worker pool
func (c *Crawler) Close() {
	c.pool.StopAndWait()
}

// Crawl indexes every mint of a known contract in [from, to]. Ranges and address
// batches run one after another; the tokens of a batch are dispatched concurrently.
// The first gateway, store or strategy error aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context, from, to uint64, contracts Contracts, sel *strategy.Selection) (*Report, error) {
	report := newReport()
	if from > to {
		return report, fmt.Errorf("invalid block range [%d, %d]", from, to)
	}

	batches := ChunkAddresses(contracts.Addresses(), c.config.AddressStep)
	ranges := BlockRanges(from, to, c.config.BlockStep)

	logger.InfoCtx(ctx, "Starting crawl",
		zap.String("chain", c.config.ChainID),
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("ranges", len(ranges)),
		zap.Int("address_batches", len(batches)),
		zap.Strings("strategies", sel.Names()))

	for _, r := range ranges {
		for _, batch := range batches {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			started := time.Now()
			err := c.crawlBatch(ctx, r, batch, contracts, sel, report)
			c.metrics.ObserveBatch(err, started)
			if err != nil {
				return report, err
			}
		}
	}

	logger.InfoCtx(ctx, "Crawl finished",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("logs", report.Logs),
		zap.Int("stored", report.Stored),
		zap.Any("dropped", report.Dropped))
	return report, nil
}

func (c *Crawler) crawlBatch(ctx context.Context, r BlockRange, batch []string, contracts Contracts, sel *strategy.Selection, report *Report) error {
	addresses := make([]common.Address, len(batch))
	for i, a := range batch {
		addresses[i] = common.HexToAddress(a)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: addresses,
		Topics:    [][]common.Hash{{domain.TransferEventSignature}},
	}
	logs, err := c.gw.FilterLogs(ctx, c.pickEndpoint(), query)
	if err != nil {
		return fmt.Errorf("failed to get logs for blocks [%d, %d]: %w", r.From, r.To, err)
	}
	report.addLogs(len(logs))
	c.metrics.ObserveLogs(len(logs))

	tokens := c.mintedTokens(ctx, logs, contracts, report)
	if len(tokens) == 0 {
		return nil
	}

	tasks := make([]pond.Task, 0, len(tokens))
	for _, token := range tokens {
		tasks = append(tasks, c.pool.SubmitErr(func() error {
			return c.dispatch(ctx, token, sel, report)
		}))
	}

	// every task settles before the first error is surfaced
	var firstErr error
	for _, task := range tasks {
		if err := task.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mintedTokens filters logs down to tokens of known contracts, keeping the earliest log per identity
func (c *Crawler) mintedTokens(ctx context.Context, logs []types.Log, contracts Contracts, report *Report) []domain.MintedToken {
	seen := make(map[domain.Identity]int, len(logs))
	var tokens []domain.MintedToken

	for _, l := range logs {
		if l.BlockNumber == 0 {
			c.drop(ctx, report, DropMissingBlock, zap.String("tx", l.TxHash.Hex()))
			continue
		}
		if len(l.Topics) < 4 {
			c.drop(ctx, report, DropInvalidLog, zap.String("tx", l.TxHash.Hex()), zap.Int("topics", len(l.Topics)))
			continue
		}

		address := domain.NormalizeAddress(l.Address.Hex())
		platform, ok := contracts.Lookup(address)
		if !ok {
			c.drop(ctx, report, DropUnknownContract, zap.String("address", address))
			continue
		}

		token := domain.MintedToken{
			Platform:       platform,
			ChainID:        c.config.ChainID,
			Address:        address,
			CreatedAtBlock: l.BlockNumber,
			TokenID:        domain.TokenIDFromTopic(l.Topics[3]),
			TxHash:         l.TxHash.Hex(),
			LogIndex:       l.Index,
		}

		id := token.Identity()
		if i, dup := seen[id]; dup {
			prev := tokens[i]
			if token.CreatedAtBlock < prev.CreatedAtBlock ||
				(token.CreatedAtBlock == prev.CreatedAtBlock && token.LogIndex < prev.LogIndex) {
				tokens[i] = token
			}
			c.drop(ctx, report, DropDuplicate, zap.String("token", id.String()))
			continue
		}
		seen[id] = len(tokens)
		tokens = append(tokens, token)
	}
	return tokens
}

// dispatch runs the token's strategy and stores the track
func (c *Crawler) dispatch(ctx context.Context, token domain.MintedToken, sel *strategy.Selection, report *Report) error {
	st, ok := sel.Lookup(token.Platform.Name)
	if !ok {
		c.drop(ctx, report, DropNoStrategy,
			zap.String("platform", token.Platform.Name),
			zap.String("token", token.Identity().String()))
		return nil
	}

	track, err := st.Crawl(ctx, token)
	if err != nil {
		if domain.IsValidation(err) {
			c.drop(ctx, report, DropInvalidMetadata,
				zap.String("token", token.Identity().String()),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("strategy %s failed on %s: %w", st.Name(), token.Identity(), err)
	}
	if track == nil {
		c.drop(ctx, report, DropNoTrack, zap.String("token", token.Identity().String()))
		return nil
	}

	value, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to marshal track %s: %w", token.Identity(), err)
	}

	rec := domain.Record{
		ID: domain.RecordID{
			Identity:    token.Identity(),
			BlockNumber: token.CreatedAtBlock,
		},
		Value: value,
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store %s: %w", token.Identity(), err)
	}

	report.addStored()
	c.metrics.ObserveStored(token.Platform.Name)
	return nil
}

func (c *Crawler) drop(ctx context.Context, report *Report, reason string, fields ...zap.Field) {
	report.addDropped(reason)
	c.metrics.ObserveDropped(reason)
	logger.DebugCtx(ctx, "Dropped", append(fields, zap.String("reason", reason))...)
}
