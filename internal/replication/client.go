package replication

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/registry"
)

// RemoteClient talks to a daemon's JSON-RPC endpoint
//
//go:generate mockgen -source=client.go -destination=../mocks/remote_client.go -package=mocks -mock_names=RemoteClient=MockRemoteClient
type RemoteClient interface {
	// GetChangedSince returns the records changed in blocks [from, to)
	GetChangedSince(ctx context.Context, from, to uint64) ([]domain.Record, error)

	// GetUserContracts returns the daemon's user contracts
	GetUserContracts(ctx context.Context) (registry.Contracts, error)

	// Close closes the connection
	Close()
}

type rpcClient struct {
	client *rpc.Client
}

// DialRemote connects to the daemon at url
func DialRemote(ctx context.Context, url string) (RemoteClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial daemon %s: %w", url, err)
	}
	return &rpcClient{client: c}, nil
}

func (c *rpcClient) GetChangedSince(ctx context.Context, from, to uint64) ([]domain.Record, error) {
	var records []domain.Record
	if err := c.client.CallContext(ctx, &records, MethodGetChangedSince, from, to); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func (c *rpcClient) GetUserContracts(ctx context.Context) (registry.Contracts, error) {
	var contracts registry.Contracts
	if err := c.client.CallContext(ctx, &contracts, MethodGetUserContracts); err != nil {
		return nil, mapError(err)
	}
	return contracts, nil
}

func (c *rpcClient) Close() {
	c.client.Close()
}

// mapError turns the daemon's range error code into ErrRangeTooLarge
func mapError(err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) || rpcErr.ErrorCode() != codeRangeTooLarge {
		return err
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return fmt.Errorf("%w: %v", ErrRangeTooLarge, dataErr.ErrorData())
	}
	return fmt.Errorf("%w: %s", ErrRangeTooLarge, rpcErr.Error())
}
