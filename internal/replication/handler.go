package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/logger"
	"github.com/feral-file/ff-track-indexer/internal/metrics"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/store"
)

// Service answers the daemon's JSON-RPC methods
type Service struct {
	store    store.Store
	registry registry.ContractRegistry
	maxSpan  uint64
	metrics  *metrics.Replication
}

// NewService creates a Service. maxSpan bounds to - from of a getChangedSince request.
func NewService(st store.Store, reg registry.ContractRegistry, maxSpan uint64) *Service {
	if maxSpan == 0 {
		maxSpan = domain.DEFAULT_MAX_SPAN
	}
	return &Service{
		store:    st,
		registry: reg,
		maxSpan:  maxSpan,
		metrics:  metrics.NewReplication(),
	}
}

// GetChangedSince returns the records changed in blocks [from, to).
// A span of exactly maxSpan is served, so a follower asking for
// [cursor, cursor+maxSpan) is never rejected; anything wider gets codeRangeTooLarge.
func (s *Service) GetChangedSince(ctx context.Context, from, to uint64) ([]domain.Record, *rpcError) {
	if to < from {
		return nil, &rpcError{Code: codeInvalidParams, Message: "to must not be lower than from"}
	}
	if to-from > s.maxSpan {
		return nil, &rpcError{
			Code:    codeRangeTooLarge,
			Message: ErrRangeTooLarge.Error(),
			Data:    rangeTooLargeData{MaxSpan: s.maxSpan},
		}
	}

	records, err := s.store.GetChangedSince(ctx, from, to)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to read changes: %w", err),
			zap.Uint64("from", from),
			zap.Uint64("to", to))
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// GetUserContracts returns the daemon's user contracts
func (s *Service) GetUserContracts() registry.Contracts {
	return s.registry.UserContracts()
}

// Handler serves JSON-RPC 2.0 requests over HTTP POST. Protocol errors are
// reported in the response body with HTTP 200.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		var req request
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			c.JSON(http.StatusOK, response{
				JSONRPC: "2.0",
				ID:      json.RawMessage("null"),
				Error:   &rpcError{Code: codeParseError, Message: "parse error"},
			})
			return
		}

		result, rpcErr := s.dispatch(c.Request.Context(), req)

		method := req.Method
		if method != MethodGetChangedSince && method != MethodGetUserContracts {
			method = ""
		}
		var observed error
		if rpcErr != nil {
			observed = rpcErr
		}
		s.metrics.ObserveRequest(method, observed, started)

		id := req.ID
		if len(id) == 0 {
			id = json.RawMessage("null")
		}
		c.JSON(http.StatusOK, response{JSONRPC: "2.0", ID: id, Result: result, Error: rpcErr})
	}
}

func (s *Service) dispatch(ctx context.Context, req request) (any, *rpcError) {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return nil, &rpcError{Code: codeInvalidRequest, Message: "invalid request"}
	}

	switch req.Method {
	case MethodGetChangedSince:
		var params []BlockParam
		if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 2 {
			return nil, &rpcError{Code: codeInvalidParams, Message: "expected [from, to] block numbers"}
		}
		records, rpcErr := s.GetChangedSince(ctx, uint64(params[0]), uint64(params[1]))
		if rpcErr != nil {
			return nil, rpcErr
		}
		return records, nil

	case MethodGetUserContracts:
		return s.GetUserContracts(), nil

	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}
