// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	Health    HealthConfig            `mapstructure:"health"`
	Routing   RoutingConfig           `mapstructure:"routing"`
	Ledgers   map[string]LedgerConfig `mapstructure:"ledgers"`
	Uniswap   UniswapConfig           `mapstructure:"uniswap"`
	OneInch   OneInchConfig           `mapstructure:"oneinch"`
	Thorchain ThorchainConfig         `mapstructure:"thorchain"`
	FeeOracle FeeOracleConfig         `mapstructure:"fee_oracle"`
	OmniPool  OmniPoolConfig          `mapstructure:"omnipool"`
	Pricing   PricingConfig           `mapstructure:"pricing"`
	Telemetry TelemetryConfig         `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestsPerMinute limits each client IP; zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// RoutingConfig tunes the dispatcher.
type RoutingConfig struct {
	TopologyFile       string        `mapstructure:"topology_file"`
	DefaultSlippageBps uint32        `mapstructure:"default_slippage_bps"`
	DefaultDeadline    time.Duration `mapstructure:"default_deadline"`
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	RouteTimeout       time.Duration `mapstructure:"route_timeout"`
	MaxFeePasses       int           `mapstructure:"max_fee_passes"`
}

// LedgerConfig holds one EVM node.
type LedgerConfig struct {
	ChainID       uint64        `mapstructure:"chain_id"`
	RPCURL        string        `mapstructure:"rpc_url"`
	WSURL         string        `mapstructure:"ws_url"`
	Confirmations uint64        `mapstructure:"confirmations"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	GasCacheTTL   time.Duration `mapstructure:"gas_cache_ttl"`
	// MaxGasPriceGwei caps the suggested gas price; zero disables the cap.
	MaxGasPriceGwei int64 `mapstructure:"max_gas_price_gwei"`
	// CompletionLookback is how many blocks behind the head the completion
	// watcher starts searching.
	CompletionLookback uint64        `mapstructure:"completion_lookback"`
	ConfirmTimeout     time.Duration `mapstructure:"confirm_timeout"`
	CompletionTimeout  time.Duration `mapstructure:"completion_timeout"`
}

// UniswapConfig holds Uniswap V3 deployments.
type UniswapConfig struct {
	Deployments []UniswapDeployment `mapstructure:"deployments"`
}

// UniswapDeployment is QuoterV2 and SwapRouter02 on one chain.
type UniswapDeployment struct {
	ChainID       uint64 `mapstructure:"chain_id"`
	QuoterAddress string `mapstructure:"quoter_address"`
	RouterAddress string `mapstructure:"router_address"`
	FeeTiers      []int  `mapstructure:"fee_tiers"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (d *UniswapDeployment) QuoterAddressHex() common.Address {
	return common.HexToAddress(d.QuoterAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (d *UniswapDeployment) RouterAddressHex() common.Address {
	return common.HexToAddress(d.RouterAddress)
}

// OneInchConfig holds the 1inch aggregator API settings.
type OneInchConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Version           string        `mapstructure:"version"`
	Chains            []uint64      `mapstructure:"chains"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ThorchainConfig holds the THORNode API settings.
type ThorchainConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeeOracleConfig holds the bridge fee oracle settings.
type FeeOracleConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// OmniPoolConfig holds settings for on-chain pool quotes.
type OmniPoolConfig struct {
	CallGas uint64 `mapstructure:"call_gas"`
}

// PricingConfig holds the USD price reference settings.
type PricingConfig struct {
	WebSocketURL string        `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	RESTURL      string        `mapstructure:"rest_url"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	// Symbols maps an asset symbol to its Binance USD market, e.g. ETH: ETHUSDT.
	Symbols map[string]string `mapstructure:"symbols"`
	// Pegged symbols are valued at one dollar.
	Pegged []string `mapstructure:"pegged"`
	// MaxSpreadBps rejects stream tickers wider than this; 0 disables.
	MaxSpreadBps int64 `mapstructure:"max_spread_bps"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("OMNI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "OMNI_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "OMNI_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "OMNI_LOG_LEVEL", "LOG_LEVEL")

	// Server
	v.BindEnv("server.addr", "OMNI_SERVER_ADDR")
	v.BindEnv("health.port", "OMNI_HEALTH_PORT")

	// Routing
	v.BindEnv("routing.topology_file", "OMNI_TOPOLOGY_FILE")

	// Ledgers
	v.BindEnv("ledgers.ethereum.rpc_url", "OMNI_ETHEREUM_RPC_URL", "ETH_HTTP_URL")
	v.BindEnv("ledgers.ethereum.ws_url", "OMNI_ETHEREUM_WS_URL", "ETH_WS_URL")
	v.BindEnv("ledgers.bsc.rpc_url", "OMNI_BSC_RPC_URL")
	v.BindEnv("ledgers.polygon.rpc_url", "OMNI_POLYGON_RPC_URL")

	// Providers
	v.BindEnv("oneinch.api_key", "OMNI_ONEINCH_API_KEY", "ONEINCH_API_KEY")
	v.BindEnv("oneinch.enabled", "OMNI_ONEINCH_ENABLED")
	v.BindEnv("thorchain.base_url", "OMNI_THORCHAIN_URL")
	v.BindEnv("fee_oracle.base_url", "OMNI_FEE_ORACLE_URL")

	// Pricing
	v.BindEnv("pricing.websocket_url", "OMNI_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("pricing.rest_url", "OMNI_BINANCE_REST_URL", "BINANCE_REST_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "OMNI_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "OMNI_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "OMNI_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "omniroute")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.requests_per_minute", 120)
	v.SetDefault("health.port", 8081)

	// Routing defaults
	v.SetDefault("routing.topology_file", "config/topology.toml")
	v.SetDefault("routing.default_slippage_bps", 50)
	v.SetDefault("routing.default_deadline", "20m")
	v.SetDefault("routing.provider_timeout", "5s")
	v.SetDefault("routing.route_timeout", "20s")
	v.SetDefault("routing.max_fee_passes", 3)

	// Ethereum mainnet
	v.SetDefault("ledgers.ethereum.chain_id", 1)
	v.SetDefault("ledgers.ethereum.confirmations", 2)
	v.SetDefault("ledgers.ethereum.poll_interval", "4s")
	v.SetDefault("ledgers.ethereum.gas_cache_ttl", "12s")
	v.SetDefault("ledgers.ethereum.max_gas_price_gwei", 500)
	v.SetDefault("ledgers.ethereum.completion_lookback", 1000)
	v.SetDefault("ledgers.ethereum.confirm_timeout", "5m")
	v.SetDefault("ledgers.ethereum.completion_timeout", "30m")

	// Uniswap V3 Mainnet defaults
	v.SetDefault("uniswap.deployments", []map[string]any{{
		"chain_id":       1,
		"quoter_address": "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
		"router_address": "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
		"fee_tiers":      []int{500, 3000, 10000},
	}})

	// 1inch defaults
	v.SetDefault("oneinch.enabled", false)
	v.SetDefault("oneinch.base_url", "https://api.1inch.dev")
	v.SetDefault("oneinch.version", "v6.0")
	v.SetDefault("oneinch.requests_per_second", 1)
	v.SetDefault("oneinch.timeout", "5s")

	// THORChain defaults
	v.SetDefault("thorchain.enabled", true)
	v.SetDefault("thorchain.base_url", "https://thornode.ninerealms.com")
	v.SetDefault("thorchain.timeout", "10s")

	// Fee oracle defaults
	v.SetDefault("fee_oracle.timeout", "5s")
	v.SetDefault("fee_oracle.cache_ttl", "15s")

	v.SetDefault("omnipool.call_gas", 2_000_000)

	// Pricing defaults
	v.SetDefault("pricing.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("pricing.rest_url", "https://api.binance.com")
	v.SetDefault("pricing.stale_timeout", "10s")
	v.SetDefault("pricing.cache_ttl", "30s")
	v.SetDefault("pricing.max_spread_bps", 200)
	v.SetDefault("pricing.symbols", map[string]string{
		"ETH":  "ETHUSDT",
		"WETH": "ETHUSDT",
		"BTC":  "BTCUSDT",
		"WBTC": "BTCUSDT",
		"BNB":  "BNBUSDT",
		"WBNB": "BNBUSDT",
		"POL":  "POLUSDT",
		"TRX":  "TRXUSDT",
	})
	v.SetDefault("pricing.pegged", []string{"USDC", "USDT", "DAI"})

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "omniroute")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Routing.TopologyFile == "" {
		return fmt.Errorf("routing.topology_file is required")
	}
	if c.Routing.DefaultSlippageBps > 5_000 {
		return fmt.Errorf("routing.default_slippage_bps above 5000: %d", c.Routing.DefaultSlippageBps)
	}
	if c.FeeOracle.BaseURL == "" {
		return fmt.Errorf("fee_oracle.base_url is required")
	}
	for name, l := range c.Ledgers {
		if l.ChainID == 0 {
			return fmt.Errorf("ledgers.%s.chain_id is required", name)
		}
	}
	for i, d := range c.Uniswap.Deployments {
		if !common.IsHexAddress(d.QuoterAddress) {
			return fmt.Errorf("invalid uniswap.deployments[%d].quoter_address: %s", i, d.QuoterAddress)
		}
		if !common.IsHexAddress(d.RouterAddress) {
			return fmt.Errorf("invalid uniswap.deployments[%d].router_address: %s", i, d.RouterAddress)
		}
	}
	if c.OneInch.Enabled && c.OneInch.APIKey == "" {
		return fmt.Errorf("oneinch.api_key is required when oneinch is enabled")
	}
	return nil
}

// Ledger returns the node configured for chainID.
func (c *Config) Ledger(chainID uint64) (LedgerConfig, bool) {
	for _, l := range c.Ledgers {
		if l.ChainID == chainID {
			return l, true
		}
	}
	return LedgerConfig{}, false
}
