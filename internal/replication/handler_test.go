package replication_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-track-indexer/internal/api/server"
	"github.com/feral-file/ff-track-indexer/internal/domain"
	"github.com/feral-file/ff-track-indexer/internal/mocks"
	"github.com/feral-file/ff-track-indexer/internal/registry"
	"github.com/feral-file/ff-track-indexer/internal/replication"
	"github.com/feral-file/ff-track-indexer/internal/store"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.OpenSQLite(store.InMemorySQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newRegistry opens a registry whose user file starts with user (nil means missing)
func newRegistry(t *testing.T, user registry.Contracts) registry.ContractRegistry {
	t.Helper()
	ctrl := gomock.NewController(t)
	fsys := mocks.NewMockFileSystem(ctrl)
	if user == nil {
		fsys.EXPECT().ReadFile("contracts.json").Return(nil, fs.ErrNotExist)
	} else {
		data, err := json.Marshal(user)
		require.NoError(t, err)
		fsys.EXPECT().ReadFile("contracts.json").Return(data, nil)
	}
	fsys.EXPECT().WriteFile("contracts.json", gomock.Any()).Return(nil).AnyTimes()

	reg, err := registry.Open(fsys, registry.Contracts{}, "contracts.json")
	require.NoError(t, err)
	return reg
}

func record(address, tokenID string, block uint64, title string) domain.Record {
	return domain.Record{
		ID: domain.RecordID{
			Identity:    domain.Identity{ChainID: "1", Address: address, TokenID: tokenID},
			BlockNumber: block,
		},
		Value: json.RawMessage(fmt.Sprintf(`{"title":%q,"version":"1.0.0"}`, title)),
	}
}

func newDaemonServer(t *testing.T, st store.Store, reg registry.ContractRegistry, maxSpan uint64) *httptest.Server {
	t.Helper()
	svc := replication.NewService(st, reg, maxSpan)
	srv := httptest.NewServer(server.New(server.Config{}, svc).Router())
	t.Cleanup(srv.Close)
	return srv
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

func post(t *testing.T, url, body string) rpcResponse {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out rpcResponse
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestHandler_GetChangedSince(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.Insert(ctx, record("0xa", "1", 100, "one")))
	require.NoError(t, st.Insert(ctx, record("0xa", "2", 150, "two")))
	require.NoError(t, st.Insert(ctx, record("0xa", "3", 200, "three")))

	srv := newDaemonServer(t, st, newRegistry(t, nil), 5000)

	t.Run("numeric params", func(t *testing.T) {
		resp := post(t, srv.URL, `{"jsonrpc":"2.0","id":7,"method":"getChangedSince","params":[100,200]}`)
		require.Nil(t, resp.Error)
		assert.Equal(t, "7", string(resp.ID))

		var records []domain.Record
		require.NoError(t, json.Unmarshal(resp.Result, &records))
		require.Len(t, records, 2)
		assert.Equal(t, "1", records[0].ID.TokenID)
		assert.Equal(t, "2", records[1].ID.TokenID)
	})

	t.Run("string params", func(t *testing.T) {
		resp := post(t, srv.URL, `{"jsonrpc":"2.0","id":"a","method":"getChangedSince","params":["150","201"]}`)
		require.Nil(t, resp.Error)
		assert.Equal(t, `"a"`, string(resp.ID))

		var records []domain.Record
		require.NoError(t, json.Unmarshal(resp.Result, &records))
		assert.Len(t, records, 2)
	})

	t.Run("empty range", func(t *testing.T) {
		resp := post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":[300,400]}`)
		require.Nil(t, resp.Error)
		assert.JSONEq(t, `[]`, string(resp.Result))
	})
}

func TestHandler_Errors(t *testing.T) {
	srv := newDaemonServer(t, newStore(t), newRegistry(t, nil), 5000)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "range too large", body: `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":[0,5001]}`, code: -32600},
		{name: "reversed range", body: `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":[10,5]}`, code: -32602},
		{name: "missing params", body: `{"jsonrpc":"2.0","id":1,"method":"getChangedSince"}`, code: -32602},
		{name: "bad block", body: `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":["x",5]}`, code: -32602},
		{name: "unknown method", body: `{"jsonrpc":"2.0","id":1,"method":"getIdsChanged","params":[]}`, code: -32601},
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":1,"method":"getChangedSince","params":[0,1]}`, code: -32600},
		{name: "parse error", body: `{"jsonrpc":`, code: -32700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL, tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}

	resp := post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":[0,5001]}`)
	require.NotNil(t, resp.Error)
	assert.JSONEq(t, `{"maxSpan":5000}`, string(resp.Error.Data))

	resp = post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"getChangedSince","params":[0,5000]}`)
	assert.Nil(t, resp.Error, "a span of exactly maxSpan is allowed")
}

func TestHandler_GetUserContracts(t *testing.T) {
	user := registry.Contracts{"0xaaa": {Name: "Sound"}}
	srv := newDaemonServer(t, newStore(t), newRegistry(t, user), 5000)

	resp := post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"getUserContracts"}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"0xaaa":{"name":"Sound"}}`, string(resp.Result))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newDaemonServer(t, newStore(t), newRegistry(t, nil), 5000)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestClient_RangeTooLarge(t *testing.T) {
	srv := newDaemonServer(t, newStore(t), newRegistry(t, nil), 100)

	client, err := replication.DialRemote(context.Background(), srv.URL)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetChangedSince(context.Background(), 0, 101)
	require.Error(t, err)
	assert.ErrorIs(t, err, replication.ErrRangeTooLarge)

	records, err := client.GetChangedSince(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, records)
}
