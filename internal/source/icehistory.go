package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"ukatrack/internal/model"
	"ukatrack/internal/timeseries"
)

// ICEHistoryClient pulls the delayed-markets historical chart JSON for
// the UKA futures contract: a "bars" array of [date, price] pairs.
type ICEHistoryClient struct {
	client *resty.Client
	url    string
}

func NewICEHistoryClient(url string, timeout time.Duration) *ICEHistoryClient {
	client := newHTTPClient(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Referer", "https://www.ice.com/products/80216150/UKA-Futures/data")
	return &ICEHistoryClient{client: client, url: url}
}

// FetchDaily returns the full daily settlement history, sorted ascending.
// Bars with unparsable dates are dropped. A stale series (latest bar
// older than three days) is logged, not failed: ICE sometimes pauses
// updates without the payload changing shape.
func (c *ICEHistoryClient) FetchDaily(ctx context.Context) ([]model.PricePoint, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstreamUnavailable, resp.StatusCode(), c.url)
	}

	var payload struct {
		Bars json.RawMessage `json:"bars"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	bars, err := decodeBars(payload.Bars)
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, bar := range bars {
		date, err := timeseries.ParseDate(bar.date)
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{
			Date:  date,
			Price: decimal.NewFromFloat(bar.price),
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no usable bars", ErrParse)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if age := time.Since(points[len(points)-1].Date); age > 72*time.Hour {
		log.Printf("[WARN] ice history: latest bar is %dd old (last update %s); upstream may have stopped updating",
			int(age.Hours()/24), points[len(points)-1].Date.Format("2006-01-02"))
	}

	return points, nil
}

type bar struct {
	date  string
	price float64
}

// decodeBars handles the observed nesting quirk: "bars" is usually a
// flat list of [date, price] pairs but occasionally a list of series
// with the daily pairs one level deeper.
func decodeBars(raw json.RawMessage) ([]bar, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, fmt.Errorf("%w: bars is not an array", ErrParse)
	}
	if len(outer) == 0 {
		return nil, fmt.Errorf("%w: empty bars array", ErrParse)
	}

	var probe []json.RawMessage
	if err := json.Unmarshal(outer[0], &probe); err != nil {
		return nil, fmt.Errorf("%w: unexpected bars element", ErrParse)
	}
	if len(probe) > 0 {
		var inner []json.RawMessage
		if json.Unmarshal(probe[0], &inner) == nil {
			// Nested layout: the daily series sits in the second slot.
			if len(outer) < 2 {
				return nil, fmt.Errorf("%w: nested bars without daily series", ErrParse)
			}
			if err := json.Unmarshal(outer[1], &outer); err != nil {
				return nil, fmt.Errorf("%w: nested daily series", ErrParse)
			}
		}
	}

	bars := make([]bar, 0, len(outer))
	for _, rawPair := range outer {
		var pair []json.RawMessage
		if err := json.Unmarshal(rawPair, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: each bar must be a [date, price] pair", ErrParse)
		}
		var b bar
		if err := json.Unmarshal(pair[0], &b.date); err != nil {
			return nil, fmt.Errorf("%w: bar date", ErrParse)
		}
		if err := json.Unmarshal(pair[1], &b.price); err != nil {
			return nil, fmt.Errorf("%w: bar price", ErrParse)
		}
		bars = append(bars, b)
	}
	return bars, nil
}
