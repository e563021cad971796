package filter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/crawler"
	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/gateway"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/registry"
)

// Factory describes a contract whose events announce new contracts of a platform
type Factory struct {
	// Strategy is the platform name given to discovered contracts
	Strategy string
	Address  string
	// Event is a 32-byte topic hash or an event signature such as "Created(address,address)"
	Event string
	// AddressTopic is the index of the indexed topic holding the new contract address
	AddressTopic int
}

// Topic returns the event topic the factory is scanned for
func (f Factory) Topic() common.Hash {
	e := strings.TrimSpace(f.Event)
	if strings.HasPrefix(e, "0x") && len(e) == 66 {
		return common.HexToHash(e)
	}
	return crypto.Keccak256Hash([]byte(e))
}

// Validate checks the factory is usable
func (f Factory) Validate() error {
	if f.Strategy == "" {
		return fmt.Errorf("factory without strategy")
	}
	if !common.IsHexAddress(f.Address) {
		return fmt.Errorf("factory %s: invalid address %q", f.Strategy, f.Address)
	}
	if strings.TrimSpace(f.Event) == "" {
		return fmt.Errorf("factory %s: empty event", f.Strategy)
	}
	if f.AddressTopic < 1 || f.AddressTopic > 3 {
		return fmt.Errorf("factory %s: address topic must be 1, 2 or 3", f.Strategy)
	}
	return nil
}

// Config holds contract filter configuration
type Config struct {
	BlockStep uint64
}

// Filter discovers platform contracts from their factories' events
type Filter struct {
	config       Config
	gw           gateway.Gateway
	factories    []Factory
	pickEndpoint func() string
}

// New creates a filter over the given factories
func New(config Config, gw gateway.Gateway, factories []Factory) (*Filter, error) {
	for _, f := range factories {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	if config.BlockStep == 0 {
		config.BlockStep = 799
	}
	return &Filter{
		config:       config,
		gw:           gw,
		factories:    factories,
		pickEndpoint: func() string { return gateway.RandomEndpoint(gw.Endpoints()) },
	}, nil
}

// Run scans the factories of the enabled strategies over [from, to], adds every
// newly seen contract to the user registry and returns how many were added.
func (f *Filter) Run(ctx context.Context, from, to uint64, strategies []string, reg registry.ContractRegistry) (int, error) {
	enabled := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		enabled[s] = true
	}

	found := make(registry.Contracts)
	for _, factory := range f.factories {
		if !enabled[factory.Strategy] {
			continue
		}
		if err := f.scan(ctx, factory, from, to, found); err != nil {
			return 0, err
		}
	}

	added, err := reg.AddMissing(found)
	if err != nil {
		return 0, fmt.Errorf("failed to persist discovered contracts: %w", err)
	}

	logger.InfoCtx(ctx, "Filtered contracts",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Int("found", len(found)),
		zap.Int("added", added))
	return added, nil
}

func (f *Filter) scan(ctx context.Context, factory Factory, from, to uint64, found registry.Contracts) error {
	topic := factory.Topic()
	address := common.HexToAddress(factory.Address)

	for _, r := range crawler.BlockRanges(from, to, f.config.BlockStep) {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(r.From),
			ToBlock:   new(big.Int).SetUint64(r.To),
			Addresses: []common.Address{address},
			Topics:    [][]common.Hash{{topic}},
		}
		logs, err := f.gw.FilterLogs(ctx, f.pickEndpoint(), query)
		if err != nil {
			return fmt.Errorf("failed to get %s factory logs for blocks [%d, %d]: %w", factory.Strategy, r.From, r.To, err)
		}

		for _, l := range logs {
			if len(l.Topics) <= factory.AddressTopic {
				logger.WarnCtx(ctx, "Factory log without address topic",
					zap.String("strategy", factory.Strategy),
					zap.String("tx", l.TxHash.Hex()))
				continue
			}
			contract := domain.NormalizeAddress(common.BytesToAddress(l.Topics[factory.AddressTopic].Bytes()).Hex())
			if _, ok := found[contract]; !ok {
				found[contract] = domain.Platform{Name: factory.Strategy}
			}
		}
	}
	return nil
}
