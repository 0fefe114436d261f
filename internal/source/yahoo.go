package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"ukatrack/internal/model"
)

// MarketDataClient retrieves daily OHLCV history for a set of tickers
// over a fixed trailing window. A single best-effort attempt per run:
// retry policy belongs to the caller.
type MarketDataClient struct {
	tickers    []string
	windowDays int
}

func NewMarketDataClient(tickers []string, windowDays int) *MarketDataClient {
	return &MarketDataClient{tickers: tickers, windowDays: windowDays}
}

// Tickers returns the configured ticker list, in request order.
func (c *MarketDataClient) Tickers() []string {
	return c.tickers
}

// FetchTrailingDaily fetches each ticker's trailing daily bars. A ticker
// that errors is logged and skipped; zero rows across all tickers is an
// UpstreamUnavailable failure.
func (c *MarketDataClient) FetchTrailingDaily(ctx context.Context) ([]model.MarketBar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -c.windowDays)

	var bars []model.MarketBar
	for _, ticker := range c.tickers {
		got, err := c.fetchTicker(ctx, ticker, start, end)
		if err != nil {
			log.Printf("[WARN] market data: %s: %v", ticker, err)
			continue
		}
		bars = append(bars, got...)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no rows for any of %v", ErrUpstreamUnavailable, c.tickers)
	}
	return bars, nil
}

func (c *MarketDataClient) fetchTicker(ctx context.Context, ticker string, start, end time.Time) ([]model.MarketBar, error) {
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := chart.Get(params)

	var bars []model.MarketBar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, model.MarketBar{
			Ticker: ticker,
			Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return bars, nil
}
