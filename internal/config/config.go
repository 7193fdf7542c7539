// Package config defines the scanner configuration: TOML file on top of
// built-in defaults, with ARBSCAN_* environment overrides for secrets.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the scanner.
type Config struct {
	// Mode selects what the process runs: scan (one pass and exit), watch
	// (continuous passes), archive (roll old history to object storage),
	// server (HTTP API only), full (watch + server).
	Mode     string `toml:"mode"`
	LogLevel string `toml:"log_level"`

	Scanner  ScannerConfig  `toml:"scanner"`
	Costs    CostsConfig    `toml:"costs"`
	Risk     RiskConfig     `toml:"risk"`
	Sources  []SourceConfig `toml:"sources"`
	Metadata MetadataConfig `toml:"metadata"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
}

// ScannerConfig holds the detection-pass parameters.
type ScannerConfig struct {
	Interval           duration `toml:"interval"`
	SnapshotTimeout    duration `toml:"snapshot_timeout"`
	MinVolume          float64  `toml:"min_volume"`
	MinProfitPct       float64  `toml:"min_profit_pct"`
	MaxProfitPct       float64  `toml:"max_profit_pct"`
	ResolveConcurrency int      `toml:"resolve_concurrency"`
	ResolveTimeout     duration `toml:"resolve_timeout"`
	AlertTop           int      `toml:"alert_top"`
}

// CostsConfig holds fee and transfer-cost parameters. Fees maps source
// names to taker-fee percentages and supplements the per-source fee_pct in
// the [[sources]] blocks. Transfers maps "chaina:chainb" pairs to flat USD
// estimates.
type CostsConfig struct {
	DefaultFeePct      float64            `toml:"default_fee_pct"`
	DefaultTransferUSD float64            `toml:"default_transfer_usd"`
	Fees               map[string]float64 `toml:"fees"`
	Transfers          map[string]float64 `toml:"transfers"`
}

// RiskConfig holds the liquidity tiers for the risk scorer, in USD.
type RiskConfig struct {
	LowLiquidityUSD      float64 `toml:"low_liquidity_usd"`
	MediumLiquidityUSD   float64 `toml:"medium_liquidity_usd"`
	HighLiquidityUSD     float64 `toml:"high_liquidity_usd"`
	HoneypotLiquidityUSD float64 `toml:"honeypot_liquidity_usd"`
}

// SourceConfig describes one quote source.
type SourceConfig struct {
	Name string `toml:"name"`
	// Type is "rest" (polled each pass) or "ws" (streaming).
	Type string `toml:"type"`
	URL  string `toml:"url"`
	// Chain is an optional hint stamped onto quotes that carry no chain of
	// their own, e.g. for a single-chain DEX aggregator.
	Chain string `toml:"chain"`
	// FeePct is this source's taker fee; it feeds the cost model.
	FeePct     float64  `toml:"fee_pct"`
	StaleAfter duration `toml:"stale_after"`
	Timeout    duration `toml:"timeout"`
}

// MetadataConfig configures the token-metadata collaborators: the
// DexScreener lookup and the CoinGecko enrichment source.
type MetadataConfig struct {
	Enabled  bool     `toml:"enabled"`
	BaseURL  string   `toml:"base_url"`
	CacheTTL duration `toml:"cache_ttl"`
	// CoinGeckoURL enables the enrichment source; empty disables it.
	CoinGeckoURL    string `toml:"coingecko_url"`
	CoinGeckoAPIKey string `toml:"coingecko_api_key"`
}

// PostgresConfig holds database connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"sslmode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether any connection target is configured.
func (c PostgresConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

// RedisConfig holds cache and signal-bus parameters.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int64  `toml:"stream_max_len"`
	// PassLock serializes passes across instances sharing this Redis.
	PassLock bool `toml:"pass_lock"`
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// S3Config holds object-storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// Enabled reports whether an archive bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML string decoding ("30s", "5m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with working default values; only
// sources and credentials need to come from the file or environment.
func Defaults() Config {
	return Config{
		Mode:     "watch",
		LogLevel: "info",
		Scanner: ScannerConfig{
			Interval:           duration{30 * time.Second},
			SnapshotTimeout:    duration{15 * time.Second},
			MinVolume:          100,
			MinProfitPct:       0.5,
			MaxProfitPct:       50,
			ResolveConcurrency: 8,
			ResolveTimeout:     duration{5 * time.Second},
			AlertTop:           5,
		},
		Costs: CostsConfig{
			DefaultFeePct:      0.1,
			DefaultTransferUSD: 5,
		},
		Risk: RiskConfig{
			LowLiquidityUSD:      10_000,
			MediumLiquidityUSD:   50_000,
			HighLiquidityUSD:     100_000,
			HoneypotLiquidityUSD: 1_000,
		},
		Metadata: MetadataConfig{
			Enabled:      true,
			BaseURL:      "https://api.dexscreener.com",
			CacheTTL:     duration{15 * time.Minute},
			CoinGeckoURL: "https://api.coingecko.com",
		},
		Postgres: PostgresConfig{
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MaxRetries:   3,
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Region:        "us-east-1",
			UseSSL:        true,
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

var validModes = map[string]bool{
	"scan":    true,
	"watch":   true,
	"archive": true,
	"server":  true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validSourceTypes = map[string]bool{
	"rest": true,
	"ws":   true,
}

// Validate checks for invalid or missing values and returns one combined
// error naming every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, watch, archive, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be positive")
	}
	if c.Scanner.MinVolume < 0 {
		errs = append(errs, "scanner: min_volume must not be negative")
	}
	if c.Scanner.MinProfitPct < 0 {
		errs = append(errs, "scanner: min_profit_pct must not be negative")
	}
	if c.Scanner.MaxProfitPct <= c.Scanner.MinProfitPct {
		errs = append(errs, fmt.Sprintf("scanner: max_profit_pct (%g) must exceed min_profit_pct (%g)",
			c.Scanner.MaxProfitPct, c.Scanner.MinProfitPct))
	}

	mode := strings.ToLower(c.Mode)
	if (mode == "scan" || mode == "watch" || mode == "full") && len(c.Sources) < 2 {
		errs = append(errs, fmt.Sprintf("sources: at least two sources are required for mode %q", c.Mode))
	}
	seen := map[string]bool{}
	for i, src := range c.Sources {
		if src.Name == "" {
			errs = append(errs, fmt.Sprintf("sources[%d]: name must not be empty", i))
			continue
		}
		if seen[src.Name] {
			errs = append(errs, fmt.Sprintf("sources: duplicate name %q", src.Name))
		}
		seen[src.Name] = true
		if !validSourceTypes[strings.ToLower(src.Type)] {
			errs = append(errs, fmt.Sprintf("sources[%s]: unknown type %q (valid: rest, ws)", src.Name, src.Type))
		}
		if src.URL == "" {
			errs = append(errs, fmt.Sprintf("sources[%s]: url must not be empty", src.Name))
		}
		if src.FeePct < 0 {
			errs = append(errs, fmt.Sprintf("sources[%s]: fee_pct must not be negative", src.Name))
		}
	}

	if c.Risk.LowLiquidityUSD > c.Risk.MediumLiquidityUSD ||
		c.Risk.MediumLiquidityUSD > c.Risk.HighLiquidityUSD {
		errs = append(errs, "risk: liquidity tiers must be ordered low <= medium <= high")
	}

	if mode == "archive" {
		if !c.S3.Enabled() {
			errs = append(errs, "s3: bucket is required for mode archive")
		}
		if !c.Postgres.Enabled() {
			errs = append(errs, "postgres: connection is required for mode archive")
		}
	}
	if c.S3.Enabled() {
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, "s3: access_key and secret_key are required when a bucket is configured")
		}
		if c.S3.RetentionDays <= 0 {
			errs = append(errs, "s3: retention_days must be positive")
		}
	}

	if (mode == "server" || mode == "full") && !c.Server.Enabled {
		errs = append(errs, fmt.Sprintf("server: enabled must be true for mode %q", c.Mode))
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// FeeMap merges the [[sources]] fee_pct values with the explicit
// [costs.fees] overrides, explicit overrides winning. A source that leaves
// fee_pct unset is omitted so it falls back to the cost model's default fee;
// a genuinely fee-free source is declared through [costs.fees].
func (c *Config) FeeMap() map[string]float64 {
	fees := make(map[string]float64, len(c.Sources)+len(c.Costs.Fees))
	for _, src := range c.Sources {
		if src.FeePct > 0 {
			fees[src.Name] = src.FeePct
		}
	}
	for name, pct := range c.Costs.Fees {
		fees[name] = pct
	}
	return fees
}
