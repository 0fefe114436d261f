package timeseries

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukatrack/internal/model"
)

func TestMarketFrame(t *testing.T) {
	bars := []model.MarketBar{
		{Ticker: "NG=F", Date: day(2025, 6, 2), Open: decimal.NewFromFloat(3.1), High: decimal.NewFromFloat(3.3), Low: decimal.NewFromFloat(3.0), Close: decimal.NewFromFloat(3.2), Volume: 1000},
		{Ticker: "BZ=F", Date: day(2025, 6, 2), Open: decimal.NewFromFloat(77.0), High: decimal.NewFromFloat(78.5), Low: decimal.NewFromFloat(76.2), Close: decimal.NewFromFloat(78.0), Volume: 2000},
		{Ticker: "NG=F", Date: day(2025, 6, 1), Open: decimal.NewFromFloat(3.0), High: decimal.NewFromFloat(3.2), Low: decimal.NewFromFloat(2.9), Close: decimal.NewFromFloat(3.1), Volume: 900},
	}

	f := MarketFrame([]string{"NG=F", "BZ=F"}, bars)

	// (ticker, field) pairs flatten to single string columns.
	assert.Contains(t, f.Cols, "NG=F_Close")
	assert.Contains(t, f.Cols, "BZ=F_Volume")

	// One row per date, sorted ascending, with both tickers merged.
	require.Len(t, f.Rows, 2)
	assert.Equal(t, day(2025, 6, 1), f.Rows[0].Key)
	assert.Equal(t, "3.1", f.Rows[0].Cells["NG=F_Close"])
	assert.Equal(t, "", f.Rows[0].Cells["BZ=F_Close"])
	assert.Equal(t, "78", f.Rows[1].Cells["BZ=F_Close"])
	assert.Equal(t, "2000", f.Rows[1].Cells["BZ=F_Volume"])
}

func TestIntensityFrame(t *testing.T) {
	actual := 120
	samples := []model.IntensitySample{
		{
			From:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			To:       time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
			Actual:   &actual,
			Forecast: nil,
			Index:    model.IndexModerate,
		},
	}

	f := IntensityFrame(samples)
	require.Len(t, f.Rows, 1)
	assert.Equal(t, KeyTime, f.Kind)
	assert.Equal(t, "120", f.Rows[0].Cells["actual"])
	assert.Equal(t, "", f.Rows[0].Cells["forecast"]) // nil stays null
	assert.Equal(t, "moderate", f.Rows[0].Cells["index"])
}

func TestPriceFrame(t *testing.T) {
	f := PriceFrame([]model.PricePoint{
		{Date: time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC), Price: decimal.NewFromFloat(52.4)},
	})
	require.Len(t, f.Rows, 1)
	// Scrape timestamps canonicalize to the calendar date.
	assert.Equal(t, day(2025, 6, 2), f.Rows[0].Key)
	assert.Equal(t, "52.4", f.Rows[0].Cells["uka_price"])
}

func TestAllocationRows(t *testing.T) {
	header, rows := AllocationRows([]model.AllocationRecord{
		{Entity: "Tata Steel", Year: 2021, Allocation: decimal.NewFromInt(500000)},
		{Entity: "", Year: 2021, Allocation: decimal.NewFromInt(1)},
	})
	assert.Equal(t, []string{"entity", "year", "allocation"}, header)
	require.Len(t, rows, 1) // blank entity dropped
	assert.Equal(t, []string{"Tata Steel", "2021", "500000"}, rows[0])
}
