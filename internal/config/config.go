package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Sources     SourcesConfig     `yaml:"sources"`
	Assets      AssetsConfig      `yaml:"assets"`
	Thresholds  ThresholdsConfig  `yaml:"thresholds"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourcesConfig holds per-source connection and pacing settings.
type SourcesConfig struct {
	GeckoTerminal GeckoTerminalConfig `yaml:"geckoterminal"`
	DexScreener   DexScreenerConfig   `yaml:"dexscreener"`
}

// GeckoTerminalConfig configures the primary (paginated-chain) source.
type GeckoTerminalConfig struct {
	Enabled        bool          `yaml:"enabled"`
	BaseURL        string        `yaml:"base_url"`
	Rank           int           `yaml:"rank"`
	Chains         []string      `yaml:"chains"`
	PageCap        int           `yaml:"page_cap"`
	PageSize       int           `yaml:"page_size"`
	SearchQueries  []string      `yaml:"search_queries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestPause   time.Duration `yaml:"request_pause"`
}

// DexScreenerConfig configures the secondary (aggregating-search) source.
type DexScreenerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	BaseURL        string        `yaml:"base_url"`
	Rank           int           `yaml:"rank"`
	SearchQueries  []string      `yaml:"search_queries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestPause   time.Duration `yaml:"request_pause"`
}

// AssetsConfig holds the alias lists used for asset class resolution and the
// chain-name canonicalization table.
type AssetsConfig struct {
	BTCAliases    []string          `yaml:"btc_aliases"`
	ETHAliases    []string          `yaml:"eth_aliases"`
	StableAliases []string          `yaml:"stable_aliases"`
	ChainNames    map[string]string `yaml:"chain_names"`
}

// ThresholdsConfig holds validation thresholds and scoring defaults.
type ThresholdsConfig struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinVolumeUSD24h float64 `yaml:"min_volume_usd_24h"`
	DefaultFeePct   float64 `yaml:"default_fee_pct"`
}

// RefreshConfig holds refresh cycle scheduling settings.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// PersistenceConfig holds snapshot database settings.
type PersistenceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SQLitePath string `yaml:"sqlite_path"`
	// SnapshotTopN limits how many pools per cycle are written to disk.
	SnapshotTopN int `yaml:"snapshot_top_n"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	cfg.setDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if len(data) > 0 {
		// Expand environment variables in YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for all configuration options.
func (c *Config) setDefaults() {
	c.Sources.GeckoTerminal = GeckoTerminalConfig{
		Enabled:        true,
		BaseURL:        "https://api.geckoterminal.com/api/v2",
		Rank:           1,
		Chains:         []string{"ethereum", "arbitrum", "base", "optimism", "polygon"},
		PageCap:        5,
		PageSize:       20,
		SearchQueries:  []string{"wbtc", "tbtc", "cbbtc"},
		RequestTimeout: 12 * time.Second,
		RequestPause:   600 * time.Millisecond,
	}
	c.Sources.DexScreener = DexScreenerConfig{
		Enabled: true,
		BaseURL: "https://api.dexscreener.com",
		Rank:    2,
		SearchQueries: []string{
			"WBTC USDC", "WBTC USDT", "WETH USDC", "WETH USDT", "WBTC WETH",
		},
		RequestTimeout: 12 * time.Second,
		RequestPause:   400 * time.Millisecond,
	}
	c.Assets = AssetsConfig{
		BTCAliases: []string{
			"btc", "wbtc", "cbbtc", "tbtc", "btcb", "renbtc", "sbtc",
			"hbtc", "fbtc", "lbtc",
		},
		ETHAliases: []string{
			"eth", "weth", "steth", "wsteth", "reth", "cbeth", "meth",
			"ezeth", "weeth", "frxeth", "oseth",
		},
		StableAliases: []string{
			"usdt", "usdc", "usdc.e", "dai", "usde", "fdusd", "tusd",
			"usdp", "gusd", "lusd", "frax", "pyusd", "usds", "busd",
		},
		ChainNames: map[string]string{
			"eth":          "ethereum",
			"ethereum":     "ethereum",
			"arbitrum":     "arbitrum",
			"arbitrum_one": "arbitrum",
			"base":         "base",
			"optimism":     "optimism",
			"polygon_pos":  "polygon",
			"polygon":      "polygon",
			"bsc":          "bsc",
			"avax":         "avalanche",
			"avalanche":    "avalanche",
		},
	}
	c.Thresholds = ThresholdsConfig{
		MinLiquidityUSD: 50_000,
		MinVolumeUSD24h: 10_000,
		DefaultFeePct:   0.3,
	}
	c.Refresh = RefreshConfig{
		Interval: 5 * time.Minute,
	}
	c.Persistence = PersistenceConfig{
		Enabled:      false,
		SQLitePath:   "./data/poolpulse.db",
		SnapshotTopN: 50,
	}
	c.Metrics = MetricsConfig{
		Enabled: true,
		Port:    8080,
		Path:    "/metrics",
	}
	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
	}
}

// applyEnvOverrides applies environment variable overrides to configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GECKOTERMINAL_BASE_URL"); v != "" {
		c.Sources.GeckoTerminal.BaseURL = v
	}
	if v := os.Getenv("DEXSCREENER_BASE_URL"); v != "" {
		c.Sources.DexScreener.BaseURL = v
	}

	if v := os.Getenv("MIN_LIQUIDITY_USD"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil && f >= 0 {
			c.Thresholds.MinLiquidityUSD = f
		}
	}
	if v := os.Getenv("MIN_VOLUME_USD_24H"); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil && f >= 0 {
			c.Thresholds.MinVolumeUSD24h = f
		}
	}

	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Refresh.Interval = d
		}
	}

	if v := os.Getenv("METRICS_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Metrics.Port = port
		}
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Persistence.SQLitePath = v
		c.Persistence.Enabled = true
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// validate checks that all required configuration values are present and valid.
func (c *Config) validate() error {
	if !c.Sources.GeckoTerminal.Enabled && !c.Sources.DexScreener.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	if c.Sources.GeckoTerminal.Enabled {
		g := c.Sources.GeckoTerminal
		if g.BaseURL == "" {
			return fmt.Errorf("sources.geckoterminal.base_url is required")
		}
		if len(g.Chains) == 0 {
			return fmt.Errorf("sources.geckoterminal.chains must have at least one chain")
		}
		if g.PageCap <= 0 {
			return fmt.Errorf("sources.geckoterminal.page_cap must be positive")
		}
		if g.PageSize <= 0 {
			return fmt.Errorf("sources.geckoterminal.page_size must be positive")
		}
	}
	if c.Sources.DexScreener.Enabled {
		d := c.Sources.DexScreener
		if d.BaseURL == "" {
			return fmt.Errorf("sources.dexscreener.base_url is required")
		}
		if len(d.SearchQueries) == 0 {
			return fmt.Errorf("sources.dexscreener.search_queries must have at least one term")
		}
	}
	if len(c.Assets.BTCAliases) == 0 || len(c.Assets.ETHAliases) == 0 || len(c.Assets.StableAliases) == 0 {
		return fmt.Errorf("assets alias lists must not be empty")
	}
	if c.Thresholds.MinLiquidityUSD < 0 || c.Thresholds.MinVolumeUSD24h < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}
	if c.Thresholds.DefaultFeePct <= 0 || c.Thresholds.DefaultFeePct > 100 {
		return fmt.Errorf("thresholds.default_fee_pct must be in (0, 100]")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be a valid port number")
	}
	return nil
}
