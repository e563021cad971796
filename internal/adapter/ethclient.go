package adapter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthClient defines the subset of the Ethereum JSON-RPC client the indexer uses
//
//go:generate mockgen -source=ethclient.go -destination=../mocks/ethclient.go -package=mocks -mock_names=EthClient=MockEthClient,EthClientDialer=MockEthClientDialer
type EthClient interface {
	// FilterLogs retrieves logs that match the filter query (eth_getLogs)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// CallContract executes a read-only call at the given block (eth_call)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// BlockNumber returns the most recent block number (eth_blockNumber)
	BlockNumber(ctx context.Context) (uint64, error)

	// Close closes the connection
	Close()
}

// EthClientDialer defines an interface for dialing Ethereum clients
type EthClientDialer interface {
	// Dial connects to rawurl. A non-empty bearer token is sent as an Authorization header.
	Dial(ctx context.Context, rawurl string, bearer string) (EthClient, error)
}

// RealEthClientDialer implements EthClientDialer using the go-ethereum rpc client
type RealEthClientDialer struct{}

// NewEthClientDialer creates a new real Ethereum client dialer
func NewEthClientDialer() EthClientDialer {
	return &RealEthClientDialer{}
}

func (a *RealEthClientDialer) Dial(ctx context.Context, rawurl string, bearer string) (EthClient, error) {
	var opts []rpc.ClientOption
	if bearer != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+bearer))
	}
	c, err := rpc.DialOptions(ctx, rawurl, opts...)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(c), nil
}
