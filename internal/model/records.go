package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single settlement price for one calendar day.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// MarketBar is one daily OHLCV bar for a ticker.
type MarketBar struct {
	Ticker string          `json:"ticker"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// IntensityIndex is the carbon-intensity band reported by the national API.
type IntensityIndex string

const (
	IndexVeryLow  IntensityIndex = "very low"
	IndexLow      IntensityIndex = "low"
	IndexModerate IntensityIndex = "moderate"
	IndexHigh     IntensityIndex = "high"
	IndexVeryHigh IntensityIndex = "very high"
)

// ParseIntensityIndex validates an index label from an upstream payload.
func ParseIntensityIndex(s string) (IntensityIndex, error) {
	switch idx := IntensityIndex(strings.ToLower(strings.TrimSpace(s))); idx {
	case IndexVeryLow, IndexLow, IndexModerate, IndexHigh, IndexVeryHigh:
		return idx, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown intensity index %q", s)
	}
}

// IntensitySample is one half-hourly carbon-intensity window.
// Actual and Forecast are nil when the upstream reported null.
type IntensitySample struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Actual   *int           `json:"actual"`
	Forecast *int           `json:"forecast"`
	Index    IntensityIndex `json:"index"`
}

// Empty reports whether the sample carries no values at all.
func (s IntensitySample) Empty() bool {
	return s.Actual == nil && s.Forecast == nil && s.Index == ""
}

// NewsItem is a single article from the news search feed.
// A zero Published time means the feed's date could not be parsed;
// such items are kept but excluded from recency filtering.
type NewsItem struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
}

// HasPublished reports whether the item carries a parseable publish time.
func (n NewsItem) HasPublished() bool {
	return !n.Published.IsZero()
}

// WeatherDailyAggregate is the daily mean of sub-daily forecast samples
// for one city.
type WeatherDailyAggregate struct {
	City          string    `json:"city"`
	Date          time.Time `json:"date"`
	TempMean      float64   `json:"temp_mean"`
	WindSpeedMean float64   `json:"wind_speed_mean"`
}

// AllocationRecord is one (entity, year) row of the UK ETS free-allocation
// timeseries, reshaped from the workbook's one-column-per-year layout.
type AllocationRecord struct {
	Entity     string          `json:"entity"`
	Year       int             `json:"year"`
	Allocation decimal.Decimal `json:"allocation"`
}
