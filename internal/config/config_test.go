package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "scan"

[scanner]
interval = "10s"
min_profit_pct = 1.5

[[sources]]
name = "cex-a"
type = "rest"
url = "https://a.example/ticker"
fee_pct = 0.1

[[sources]]
name = "dex-b"
type = "ws"
url = "wss://b.example/stream"
chain = "ethereum"
fee_pct = 0.3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.Scanner.Interval.Duration)
	assert.Equal(t, 1.5, cfg.Scanner.MinProfitPct)
	// Untouched fields keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.1, cfg.Costs.DefaultFeePct)
	assert.Equal(t, 50_000.0, cfg.Risk.MediumLiquidityUSD)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "ws", cfg.Sources[1].Type)
	assert.Equal(t, "ethereum", cfg.Sources[1].Chain)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTOML(t, `
mode = "server"

[server]
enabled = true
`)

	t.Setenv("ARBSCAN_MODE", "archive")
	t.Setenv("ARBSCAN_POSTGRES_DSN", "postgres://env@localhost/arbscan")
	t.Setenv("ARBSCAN_S3_BUCKET", "arbscan-archive")
	t.Setenv("ARBSCAN_S3_ACCESS_KEY", "ak")
	t.Setenv("ARBSCAN_S3_SECRET_KEY", "sk")
	t.Setenv("ARBSCAN_SCANNER_INTERVAL", "2m")
	t.Setenv("ARBSCAN_NOTIFY_EVENTS", "opportunity, archive")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "archive", cfg.Mode)
	assert.Equal(t, "postgres://env@localhost/arbscan", cfg.Postgres.DSN)
	assert.Equal(t, "arbscan-archive", cfg.S3.Bucket)
	assert.Equal(t, 2*time.Minute, cfg.Scanner.Interval.Duration)
	assert.Equal(t, []string{"opportunity", "archive"}, cfg.Notify.Events)

	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.LogLevel = "verbose"
	cfg.Scanner.Interval.Duration = 0
	cfg.Scanner.MinProfitPct = 5
	cfg.Scanner.MaxProfitPct = 2
	cfg.Sources = []SourceConfig{
		{Name: "a", Type: "grpc", URL: ""},
		{Name: "a", Type: "rest", URL: "https://dup.example"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "replay"`)
	assert.Contains(t, msg, `unknown log_level "verbose"`)
	assert.Contains(t, msg, "interval must be positive")
	assert.Contains(t, msg, "max_profit_pct")
	assert.Contains(t, msg, `unknown type "grpc"`)
	assert.Contains(t, msg, "url must not be empty")
	assert.Contains(t, msg, `duplicate name "a"`)
}

func TestValidateArchiveModeRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
	assert.Contains(t, err.Error(), "postgres: connection is required")

	cfg.S3.Bucket = "arbscan-archive"
	cfg.S3.AccessKey = "ak"
	cfg.S3.SecretKey = "sk"
	cfg.Postgres.DSN = "postgres://localhost/arbscan"
	require.NoError(t, cfg.Validate())
}

func TestFeeMapPrefersExplicitOverrides(t *testing.T) {
	cfg := Defaults()
	cfg.Sources = []SourceConfig{
		{Name: "cex-a", FeePct: 0.1},
		{Name: "dex-b", FeePct: 0.3},
	}
	cfg.Costs.Fees = map[string]float64{"dex-b": 0.25}

	fees := cfg.FeeMap()
	assert.Equal(t, 0.1, fees["cex-a"])
	assert.Equal(t, 0.25, fees["dex-b"])
}

func TestFeeMapUnsetSourceFeeFallsBackToDefault(t *testing.T) {
	cfg := Defaults()
	cfg.Sources = []SourceConfig{
		{Name: "cex-a", FeePct: 0.2},
		{Name: "dex-b"}, // no fee_pct in the source block
		{Name: "dex-c"},
	}
	cfg.Costs.Fees = map[string]float64{"dex-c": 0} // declared fee-free

	fees := cfg.FeeMap()
	assert.Equal(t, 0.2, fees["cex-a"])
	_, ok := fees["dex-b"]
	assert.False(t, ok, "unset fee must not shadow the default with zero")
	pct, ok := fees["dex-c"]
	assert.True(t, ok, "explicit zero via costs.fees is honored")
	assert.Equal(t, 0.0, pct)
}
