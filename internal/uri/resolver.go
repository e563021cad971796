package uri

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/adapter"
	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/logger"
)

// Config holds configuration for the URI resolver
type Config struct {
	// IPFSGateway is the prefix an IPFS path is appended to, e.g. https://ipfs.io/ipfs/
	IPFSGateway string
	// ArweaveGateway is the prefix an Arweave transaction id is appended to, e.g. https://arweave.net/
	ArweaveGateway string
}

// Resolver maps token URIs onto fetchable URLs and fetches them
//
//go:generate mockgen -source=resolver.go -destination=../mocks/uri_resolver.go -package=mocks -mock_names=Resolver=MockURIResolver
type Resolver interface {
	// Resolve rewrites ipfs://, ar:// and gateway-hosted /ipfs/ URLs onto the configured gateways.
	// http(s) URLs pass through. Other schemes fail with domain.ErrUnsupportedURI.
	Resolve(uri string) (string, error)

	// Fetch returns the content behind uri. data: URIs are decoded without a network round trip.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

type resolver struct {
	httpClient adapter.HTTPClient
	config     Config
}

// NewResolver creates a resolver; empty gateways fall back to the public defaults
func NewResolver(httpClient adapter.HTTPClient, config Config) Resolver {
	if config.IPFSGateway == "" {
		config.IPFSGateway = domain.DEFAULT_IPFS_GATEWAY
	}
	if config.ArweaveGateway == "" {
		config.ArweaveGateway = domain.DEFAULT_ARWEAVE_GATEWAY
	}
	config.IPFSGateway = withTrailingSlash(config.IPFSGateway)
	config.ArweaveGateway = withTrailingSlash(config.ArweaveGateway)

	return &resolver{
		httpClient: httpClient,
		config:     config,
	}
}

func (r *resolver) Resolve(uri string) (string, error) {
	uri = strings.TrimSpace(uri)

	if path, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		path = strings.TrimPrefix(path, "ipfs/")
		return r.config.IPFSGateway + path, nil
	}

	if txID, ok := strings.CutPrefix(uri, "ar://"); ok {
		return r.config.ArweaveGateway + txID, nil
	}

	lower := strings.ToLower(uri)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedURI, truncate(uri, 64))
	}

	// Pin content hosted on arbitrary IPFS gateways to ours
	if _, path, ok := strings.Cut(uri, "/ipfs/"); ok && path != "" {
		return r.config.IPFSGateway + path, nil
	}

	return uri, nil
}

func (r *resolver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		parsed, err := ParseDataURI(uri)
		if err != nil {
			return nil, err
		}
		return parsed.Data, nil
	}

	url, err := r.Resolve(uri)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Fetching content", zap.String("uri", uri), zap.String("url", url))

	body, err := r.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return body, nil
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
