package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// City is a weather fetch target.
type City struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Config holds all application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Debug   bool   `yaml:"debug"`

	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`

	ICE struct {
		PageURL string `yaml:"page_url"`
		// Contract is the front-month label to scrape (e.g. "Dec25").
		// It rolls over calendar time and must never be hard-coded.
		Contract    string `yaml:"contract"`
		HistoryURL  string `yaml:"history_url"`
		WaitSeconds int    `yaml:"wait_seconds"`
	} `yaml:"ice"`

	Intensity struct {
		BaseURL     string `yaml:"base_url"`
		SegmentDays int    `yaml:"segment_days"`
	} `yaml:"intensity"`

	News struct {
		FeedURL     string `yaml:"feed_url"`
		Query       string `yaml:"query"`
		MaxItems    int    `yaml:"max_items"`
		RecencyDays int    `yaml:"recency_days"`
	} `yaml:"news"`

	Weather struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Cities  []City `yaml:"cities"`
	} `yaml:"weather"`

	Market struct {
		Tickers    []string `yaml:"tickers"`
		WindowDays int      `yaml:"window_days"`
	} `yaml:"market"`

	Allocations struct {
		WorkbookPath  string `yaml:"workbook_path"`
		CompanySheet  string `yaml:"company_sheet"`
		IndustrySheet string `yaml:"industry_sheet"`
	} `yaml:"allocations"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("UKATRACK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("UKA_CONTRACT"); v != "" {
		cfg.ICE.Contract = v
	}
	if v := os.Getenv("ICE_PAGE_URL"); v != "" {
		cfg.ICE.PageURL = v
	}
	if v := os.Getenv("ICE_HISTORY_URL"); v != "" {
		cfg.ICE.HistoryURL = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("UKATRACK_TICKERS"); v != "" {
		cfg.Market.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("UKATRACK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.HTTPTimeoutSeconds == 0 {
		c.HTTPTimeoutSeconds = 30
	}
	if c.ICE.PageURL == "" {
		c.ICE.PageURL = "https://www.ice.com/products/80216150/UKA-Futures/data?marketId=7977905&span=1"
	}
	if c.ICE.HistoryURL == "" {
		c.ICE.HistoryURL = "https://www.ice.com/marketdata/DelayedMarkets.shtml?getHistoricalChartDataAsJson=&marketId=6994206&historicalSpan=1"
	}
	if c.ICE.WaitSeconds == 0 {
		c.ICE.WaitSeconds = 10
	}
	if c.Intensity.BaseURL == "" {
		c.Intensity.BaseURL = "https://api.carbonintensity.org.uk"
	}
	if c.Intensity.SegmentDays == 0 {
		c.Intensity.SegmentDays = 30
	}
	if c.News.FeedURL == "" {
		c.News.FeedURL = "https://news.google.com/rss/search"
	}
	if c.News.Query == "" {
		c.News.Query = "UK Carbon Allowance OR UKA OR UK ETS OR linking with EU OR linking emissions trading OR ETS link"
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = 6
	}
	if c.News.RecencyDays == 0 {
		c.News.RecencyDays = 30
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://api.openweathermap.org/data/2.5/forecast"
	}
	if len(c.Weather.Cities) == 0 {
		c.Weather.Cities = []City{
			{Name: "London", Lat: 51.5074, Lon: -0.1278},
			{Name: "Edinburgh", Lat: 55.9533, Lon: -3.1883},
			{Name: "Glasgow", Lat: 55.8642, Lon: -4.2518},
			{Name: "Belfast", Lat: 54.5973, Lon: -5.9301},
			{Name: "Manchester", Lat: 53.4808, Lon: -2.2426},
		}
	}
	if len(c.Market.Tickers) == 0 {
		c.Market.Tickers = []string{"NG=F", "BZ=F"}
	}
	if c.Market.WindowDays == 0 {
		c.Market.WindowDays = 90
	}
	if c.Allocations.CompanySheet == "" {
		c.Allocations.CompanySheet = "Timeseries - Company Allocation"
	}
	if c.Allocations.IndustrySheet == "" {
		c.Allocations.IndustrySheet = "Timeseries-Industry Allocations"
	}
}

// Validate checks settings that have no sensible fallback.
func (c *Config) Validate() error {
	if c.ICE.Contract == "" {
		return fmt.Errorf("ice.contract is required: the front-month label rolls over time and must be supplied via config or UKA_CONTRACT")
	}
	if c.Intensity.SegmentDays < 1 || c.Intensity.SegmentDays > 30 {
		return fmt.Errorf("intensity.segment_days must be within 1..30 (API caps query span at 30 days), got %d", c.Intensity.SegmentDays)
	}
	if c.News.MaxItems < 1 {
		return fmt.Errorf("news.max_items must be positive, got %d", c.News.MaxItems)
	}
	return nil
}

// HTTPTimeout returns the per-request timeout for API clients.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RenderWait returns the bounded wait for the scraped page to render.
func (c *Config) RenderWait() time.Duration {
	return time.Duration(c.ICE.WaitSeconds) * time.Second
}

// Store paths under the data directory. The raw/ layout is shared with
// downstream consumers and must stay stable.

func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

func (c *Config) PriceStorePath() string {
	return filepath.Join(c.RawDir(), "uka_timeseries.csv")
}

func (c *Config) HistoryStorePath() string {
	return filepath.Join(c.RawDir(), "uka_prices.csv")
}

func (c *Config) IntensityStorePath() string {
	return filepath.Join(c.RawDir(), "carbon_intensity.csv")
}

func (c *Config) MarketStorePath() string {
	return filepath.Join(c.RawDir(), "gas_prices.csv")
}

func (c *Config) WeatherStorePath() string {
	return filepath.Join(c.RawDir(), "weather.csv")
}

func (c *Config) NewsSnapshotPath() string {
	return filepath.Join(c.RawDir(), "news_latest.json")
}

func (c *Config) AllocationStorePath(kind string) string {
	return filepath.Join(c.RawDir(), fmt.Sprintf("allocations_%s.csv", kind))
}

// EnsureDirectories creates the data directory tree.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.RawDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
