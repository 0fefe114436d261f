package timeseries

import (
	"fmt"
	"strconv"
	"strings"

	"ukatrack/internal/model"
)

// Frame builders: each turns one source's typed records into the tabular
// shape the consolidator and store operate on. Numeric cells are written
// in their canonical text form; nil/unknown values stay null.

// PriceFrame keys daily settlement prices by calendar date.
func PriceFrame(points []model.PricePoint) *Frame {
	f := NewFrame(KeyDate, "date", "", "uka_price")
	for _, p := range points {
		f.Append(p.Date, "", map[string]string{"uka_price": p.Price.String()})
	}
	return f
}

// IntensityFrame keys half-hourly samples by window start.
func IntensityFrame(samples []model.IntensitySample) *Frame {
	f := NewFrame(KeyTime, "from", "", "to", "actual", "forecast", "index")
	for _, s := range samples {
		cells := map[string]string{
			"to":    s.To.UTC().Format(timeLayout),
			"index": string(s.Index),
		}
		if s.Actual != nil {
			cells["actual"] = strconv.Itoa(*s.Actual)
		}
		if s.Forecast != nil {
			cells["forecast"] = strconv.Itoa(*s.Forecast)
		}
		f.Append(s.From, "", cells)
	}
	return f
}

// MarketFrame flattens multi-ticker daily bars into one row per date with
// TICKER_Field columns, mirroring how a multi-level (ticker, field) header
// collapses to single string keys.
func MarketFrame(tickers []string, bars []model.MarketBar) *Frame {
	fields := []string{"Open", "High", "Low", "Close", "Volume"}
	var cols []string
	for _, t := range tickers {
		for _, field := range fields {
			cols = append(cols, fmt.Sprintf("%s_%s", t, field))
		}
	}
	f := NewFrame(KeyDate, "date", "", cols...)

	byDate := make(map[string]map[string]string)
	var order []string
	for _, b := range bars {
		key := f.FormatKey(f.Canonical(b.Date))
		cells, ok := byDate[key]
		if !ok {
			cells = make(map[string]string)
			byDate[key] = cells
			order = append(order, key)
		}
		cells[b.Ticker+"_Open"] = b.Open.String()
		cells[b.Ticker+"_High"] = b.High.String()
		cells[b.Ticker+"_Low"] = b.Low.String()
		cells[b.Ticker+"_Close"] = b.Close.String()
		cells[b.Ticker+"_Volume"] = strconv.FormatInt(b.Volume, 10)
	}
	for _, key := range order {
		date, _ := f.ParseKey(key)
		f.Append(date, "", byDate[key])
	}
	f.Sort()
	return f
}

// WeatherFrame keys daily aggregates by (date, city).
func WeatherFrame(aggs []model.WeatherDailyAggregate) *Frame {
	f := NewFrame(KeyDate, "date", "city", "temp_mean", "wind_speed_mean")
	for _, a := range aggs {
		f.Append(a.Date, a.City, map[string]string{
			"temp_mean":       strconv.FormatFloat(a.TempMean, 'f', 2, 64),
			"wind_speed_mean": strconv.FormatFloat(a.WindSpeedMean, 'f', 2, 64),
		})
	}
	f.Sort()
	return f
}

// AllocationRows renders long-form allocation records for the store.
// Allocations are keyed by (entity, year) rather than by date, so they
// bypass the date-keyed frame and are written as plain rows.
func AllocationRows(recs []model.AllocationRecord) ([]string, [][]string) {
	header := []string{"entity", "year", "allocation"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		if strings.TrimSpace(r.Entity) == "" {
			continue
		}
		rows = append(rows, []string{r.Entity, strconv.Itoa(r.Year), r.Allocation.String()})
	}
	return header, rows
}
