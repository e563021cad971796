package replication

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// JSON-RPC method names served by the daemon
const (
	MethodGetChangedSince  = "getChangedSince"
	MethodGetUserContracts = "getUserContracts"
)

// JSON-RPC 2.0 error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603

	// codeRangeTooLarge shares the invalid request code; its data carries the allowed span
	codeRangeTooLarge = codeInvalidRequest
)

// ErrRangeTooLarge is returned by the follower when the daemon refuses the requested span
var ErrRangeTooLarge = errors.New("block range too large")

// BlockParam is a block number sent as a JSON number, a decimal string or a 0x hex string
type BlockParam uint64

func (b *BlockParam) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BlockParam(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("block number must be a number or a string: %s", string(data))
	}
	s = strings.TrimSpace(s)

	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		n, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return fmt.Errorf("invalid block number %q", s)
	}
	*b = BlockParam(n)
	return nil
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// rangeTooLargeData is the error data of a refused getChangedSince
type rangeTooLargeData struct {
	MaxSpan uint64 `json:"maxSpan"`
}
