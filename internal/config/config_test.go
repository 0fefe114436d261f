package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 30, cfg.Intensity.SegmentDays)
	assert.Equal(t, 6, cfg.News.MaxItems)
	assert.Equal(t, 30, cfg.News.RecencyDays)
	assert.Equal(t, []string{"NG=F", "BZ=F"}, cfg.Market.Tickers)
	assert.Len(t, cfg.Weather.Cities, 5)
	assert.Equal(t, 10, cfg.ICE.WaitSeconds)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
data_dir: /var/lib/ukatrack
ice:
  contract: Dec25
news:
  max_items: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("UKA_CONTRACT", "Dec26")
	t.Setenv("OPENWEATHER_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ukatrack", cfg.DataDir)
	// Env beats file: the front-month label rolls without redeploys.
	assert.Equal(t, "Dec26", cfg.ICE.Contract)
	assert.Equal(t, "secret", cfg.Weather.APIKey)
	assert.Equal(t, 8, cfg.News.MaxItems)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	// No contract label configured: refuse to run rather than scrape
	// a stale hard-coded default.
	assert.Error(t, cfg.Validate())

	cfg.ICE.Contract = "Dec25"
	assert.NoError(t, cfg.Validate())

	cfg.Intensity.SegmentDays = 45
	assert.Error(t, cfg.Validate())
}

func TestStorePaths(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.DataDir = "/tmp/x"

	assert.Equal(t, "/tmp/x/raw/uka_timeseries.csv", cfg.PriceStorePath())
	assert.Equal(t, "/tmp/x/raw/allocations_company.csv", cfg.AllocationStorePath("company"))
}
