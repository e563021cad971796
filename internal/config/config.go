package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-track-indexer/internal/domain"
)

const serviceName = "track-indexer"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// RPCHost is one JSON-RPC endpoint. Key, when set, is sent as a bearer token.
type RPCHost struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// ChainConfig holds the chain being indexed and how its logs are paged
type ChainConfig struct {
	ID  string    `mapstructure:"id"`
	RPC []RPCHost `mapstructure:"rpc"`
	// BlockStep is the widest block range sent in one eth_getLogs call
	BlockStep uint64 `mapstructure:"block_step"`
	// AddressStep is the most contract addresses sent in one eth_getLogs call
	AddressStep int `mapstructure:"address_step"`
	// CrawlStep caps how far one daemon cycle advances
	CrawlStep uint64 `mapstructure:"crawl_step"`
}

// GatewayConfig holds per-endpoint rate limiting and retry settings
type GatewayConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        uint64        `mapstructure:"max_retries"`
}

// ContentConfig holds off-chain content gateways
type ContentConfig struct {
	IPFSGateway    string        `mapstructure:"ipfs_gateway"`
	ArweaveGateway string        `mapstructure:"arweave_gateway"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed"`
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// StoreConfig selects the store backend
type StoreConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file, or ":memory:"
	Path     string         `mapstructure:"path"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ContractsConfig holds contract registry file locations
type ContractsConfig struct {
	// BaselinePath overrides the embedded baseline registry when set
	BaselinePath string `mapstructure:"baseline_path"`
	UserPath     string `mapstructure:"user_path"`
}

// WorkerConfig holds dispatch worker pool configuration
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// FactoryConfig declares a factory contract whose events announce new platform contracts
type FactoryConfig struct {
	Strategy string `mapstructure:"strategy"`
	Address  string `mapstructure:"address"`
	// Event is either a 0x-prefixed topic hash or a canonical event signature
	Event string `mapstructure:"event"`
	// AddressTopic is the index of the topic holding the new contract address
	AddressTopic int `mapstructure:"address_topic"`
}

// DaemonConfig holds replication daemon configuration
type DaemonConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MaxSpan      uint64        `mapstructure:"max_span"`
	BreatheTime  time.Duration `mapstructure:"breathe_time"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// BlockHeadConfig holds chain head caching settings
type BlockHeadConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	StaleWindow time.Duration `mapstructure:"stale_window"`
	// Confirmations is subtracted from the reported head
	Confirmations uint64 `mapstructure:"confirmations"`
}

// FollowerConfig holds replication follower configuration
type FollowerConfig struct {
	URL          string `mapstructure:"url"`
	GenesisBlock uint64 `mapstructure:"genesis_block"`
	MaxSpan      uint64 `mapstructure:"max_span"`
}

// Config is the configuration of every track-indexer command
type Config struct {
	BaseConfig `mapstructure:",squash"`
	Chain      ChainConfig     `mapstructure:"chain"`
	Gateway    GatewayConfig   `mapstructure:"gateway"`
	Content    ContentConfig   `mapstructure:"content"`
	Store      StoreConfig     `mapstructure:"store"`
	Contracts  ContractsConfig `mapstructure:"contracts"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	Strategies []string        `mapstructure:"strategies"`
	Factories  []FactoryConfig `mapstructure:"factories"`
	Daemon     DaemonConfig    `mapstructure:"daemon"`
	BlockHead  BlockHeadConfig `mapstructure:"block_head"`
	Follower   FollowerConfig  `mapstructure:"follower"`
}

// Load loads the configuration from the config file, .env files and TRACK_INDEXER_* variables
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(serviceName, configFile, envPath)

	v.SetDefault("chain.id", domain.DEFAULT_CHAIN_ID)
	v.SetDefault("chain.block_step", 799)
	v.SetDefault("chain.address_step", 100)
	v.SetDefault("chain.crawl_step", 5000)
	v.SetDefault("gateway.requests_per_second", 300)
	v.SetDefault("gateway.burst", 10)
	v.SetDefault("gateway.timeout", "120s")
	v.SetDefault("gateway.max_retries", 5)
	v.SetDefault("content.ipfs_gateway", domain.DEFAULT_IPFS_GATEWAY)
	v.SetDefault("content.arweave_gateway", domain.DEFAULT_ARWEAVE_GATEWAY)
	v.SetDefault("content.http_timeout", "30s")
	v.SetDefault("content.max_elapsed", "1m")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/tracks.db")
	v.SetDefault("store.database.port", 5432)
	v.SetDefault("store.database.sslmode", "disable")
	v.SetDefault("contracts.user_path", "data/contracts.json")
	v.SetDefault("worker.pool_size", 200)
	v.SetDefault("strategies", []string{"Sound", "SoundProtocol", "Zora", "CatalogV2", "MintSongsV2", "Noizd"})
	v.SetDefault("daemon.host", "0.0.0.0")
	v.SetDefault("daemon.port", 8080)
	v.SetDefault("daemon.max_span", domain.DEFAULT_MAX_SPAN)
	v.SetDefault("daemon.breathe_time", "15m")
	v.SetDefault("daemon.read_timeout", "30s")
	v.SetDefault("daemon.write_timeout", "2m")
	v.SetDefault("daemon.idle_timeout", "2m")
	v.SetDefault("daemon.cors_origins", []string{"*"})
	v.SetDefault("block_head.ttl", "12s")
	v.SetDefault("block_head.stale_window", "1m")
	v.SetDefault("block_head.confirmations", 0)
	v.SetDefault("follower.url", "http://localhost:8080")
	v.SetDefault("follower.genesis_block", domain.DEFAULT_GENESIS_BLOCK)
	v.SetDefault("follower.max_span", domain.DEFAULT_MAX_SPAN)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// RPC hosts can come from a comma separated env var since lists of maps don't bind
	if len(config.Chain.RPC) == 0 {
		for _, entry := range v.GetStringSlice("chain.rpc_urls") {
			for _, u := range strings.Split(entry, ",") {
				if u = strings.TrimSpace(u); u != "" {
					config.Chain.RPC = append(config.Chain.RPC, RPCHost{URL: u})
				}
			}
		}
	}

	config.Chain.ID = strings.TrimSpace(config.Chain.ID)
	return &config, nil
}

// Validate checks the settings every command relies on
func (c *Config) Validate() error {
	if c.Chain.ID == "" {
		return fmt.Errorf("chain.id is required")
	}
	if c.Chain.BlockStep == 0 {
		return fmt.Errorf("chain.block_step must be positive")
	}
	if c.Chain.AddressStep <= 0 {
		return fmt.Errorf("chain.address_step must be positive")
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be positive")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.Database.Host == "" || c.Store.Database.DBName == "" {
			return fmt.Errorf("store.database.host and store.database.dbname are required for postgres")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	for i, f := range c.Factories {
		if f.Strategy == "" || f.Address == "" || f.Event == "" {
			return fmt.Errorf("factories[%d]: strategy, address and event are required", i)
		}
		if f.AddressTopic < 1 || f.AddressTopic > 3 {
			return fmt.Errorf("factories[%d]: address_topic must be 1, 2 or 3", i)
		}
	}
	return nil
}

// ValidateChainAccess checks the settings of commands that talk to the chain
func (c *Config) ValidateChainAccess() error {
	if len(c.Chain.RPC) == 0 {
		return fmt.Errorf("chain.rpc needs at least one host")
	}
	for i, h := range c.Chain.RPC {
		if h.URL == "" {
			return fmt.Errorf("chain.rpc[%d].url is required", i)
		}
	}
	return nil
}

func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("TRACK_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Chain
		"chain.id",
		"chain.rpc_urls",
		"chain.block_step",
		"chain.address_step",
		"chain.crawl_step",
		// Gateway
		"gateway.requests_per_second",
		"gateway.burst",
		"gateway.timeout",
		"gateway.max_retries",
		// Content
		"content.ipfs_gateway",
		"content.arweave_gateway",
		"content.http_timeout",
		"content.max_elapsed",
		// Store
		"store.driver",
		"store.path",
		"store.database.host",
		"store.database.port",
		"store.database.user",
		"store.database.password",
		"store.database.dbname",
		"store.database.sslmode",
		"store.database.max_open_conns",
		"store.database.max_idle_conns",
		"store.database.conn_max_lifetime",
		"store.database.conn_max_idle_time",
		// Contracts
		"contracts.baseline_path",
		"contracts.user_path",
		// Worker
		"worker.pool_size",
		"strategies",
		// Daemon
		"daemon.host",
		"daemon.port",
		"daemon.max_span",
		"daemon.breathe_time",
		"daemon.read_timeout",
		"daemon.write_timeout",
		"daemon.idle_timeout",
		"daemon.cors_origins",
		// Block head
		"block_head.ttl",
		"block_head.stale_window",
		"block_head.confirmations",
		// Follower
		"follower.url",
		"follower.genesis_block",
		"follower.max_span",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
