package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "full config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
chain:
  id: "1"
  rpc:
    - url: "https://rpc.ankr.com/eth"
      key: "secret"
    - url: "https://cloudflare-eth.com"
  block_step: 500
  address_step: 50
  crawl_step: 2000
gateway:
  requests_per_second: 20
  timeout: 30s
store:
  driver: postgres
  database:
    host: localhost
    user: indexer
    password: pass
    dbname: tracks
strategies: ["Sound", "Zora"]
factories:
  - strategy: SoundProtocol
    address: "0x0000000000000000000000000000000000000001"
    event: "Created(address)"
    address_topic: 1
daemon:
  port: 9090
  max_span: 1000
  breathe_time: 5m
follower:
  url: "http://primary:8080"
  genesis_block: 16000000
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "1", cfg.Chain.ID)
				require.Len(t, cfg.Chain.RPC, 2)
				assert.Equal(t, "secret", cfg.Chain.RPC[0].Key)
				assert.Equal(t, "https://cloudflare-eth.com", cfg.Chain.RPC[1].URL)
				assert.Equal(t, uint64(500), cfg.Chain.BlockStep)
				assert.Equal(t, 50, cfg.Chain.AddressStep)
				assert.Equal(t, uint64(2000), cfg.Chain.CrawlStep)
				assert.Equal(t, float64(20), cfg.Gateway.RequestsPerSecond)
				assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
				assert.Equal(t, "postgres", cfg.Store.Driver)
				assert.Equal(t, 5432, cfg.Store.Database.Port)
				assert.Equal(t, "disable", cfg.Store.Database.SSLMode)
				assert.Equal(t, []string{"Sound", "Zora"}, cfg.Strategies)
				require.Len(t, cfg.Factories, 1)
				assert.Equal(t, 1, cfg.Factories[0].AddressTopic)
				assert.Equal(t, 9090, cfg.Daemon.Port)
				assert.Equal(t, uint64(1000), cfg.Daemon.MaxSpan)
				assert.Equal(t, 5*time.Minute, cfg.Daemon.BreatheTime)
				assert.Equal(t, "http://primary:8080", cfg.Follower.URL)
				assert.Equal(t, uint64(16000000), cfg.Follower.GenesisBlock)
				assert.NoError(t, cfg.Validate())
				assert.NoError(t, cfg.ValidateChainAccess())
			},
		},
		{
			name: "defaults",
			configFile: `
chain:
  rpc:
    - url: "http://localhost:8545"
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "1", cfg.Chain.ID)
				assert.Equal(t, uint64(799), cfg.Chain.BlockStep)
				assert.Equal(t, 100, cfg.Chain.AddressStep)
				assert.Equal(t, uint64(5000), cfg.Chain.CrawlStep)
				assert.Equal(t, "sqlite", cfg.Store.Driver)
				assert.Equal(t, "data/tracks.db", cfg.Store.Path)
				assert.Equal(t, "data/contracts.json", cfg.Contracts.UserPath)
				assert.Equal(t, 200, cfg.Worker.PoolSize)
				assert.Equal(t, 8080, cfg.Daemon.Port)
				assert.Equal(t, uint64(5000), cfg.Daemon.MaxSpan)
				assert.Equal(t, 15*time.Minute, cfg.Daemon.BreatheTime)
				assert.Equal(t, uint64(15000000), cfg.Follower.GenesisBlock)
				assert.Equal(t, uint64(5000), cfg.Follower.MaxSpan)
				assert.Contains(t, cfg.Strategies, "Sound")
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name:        "malformed yaml",
			configFile:  "chain: [",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.configFile)
			cfg, err := Load(path, t.TempDir())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_RPCURLsFromEnv(t *testing.T) {
	t.Setenv("TRACK_INDEXER_CHAIN_RPC_URLS", "http://a:8545, http://b:8545")

	cfg, err := Load(writeConfig(t, "debug: false\n"), t.TempDir())
	require.NoError(t, err)
	require.Len(t, cfg.Chain.RPC, 2)
	assert.Equal(t, "http://a:8545", cfg.Chain.RPC[0].URL)
	assert.Equal(t, "http://b:8545", cfg.Chain.RPC[1].URL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Chain:  ChainConfig{ID: "1", BlockStep: 799, AddressStep: 100},
			Store:  StoreConfig{Driver: "sqlite", Path: ":memory:"},
			Worker: WorkerConfig{PoolSize: 4},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero block step", mutate: func(c *Config) { c.Chain.BlockStep = 0 }},
		{name: "zero address step", mutate: func(c *Config) { c.Chain.AddressStep = 0 }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }},
		{name: "postgres without host", mutate: func(c *Config) { c.Store.Driver = "postgres" }},
		{name: "factory topic out of range", mutate: func(c *Config) {
			c.Factories = []FactoryConfig{{Strategy: "S", Address: "0x1", Event: "E()", AddressTopic: 0}}
		}},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.Error(t, valid().ValidateChainAccess())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "tracks", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tracks sslmode=disable", c.DSN())
}
