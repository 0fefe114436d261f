package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"ukatrack/internal/config"
	"ukatrack/internal/model"
)

// WeatherClient pulls the 5-day/3-hour forecast for each configured city
// and aggregates the sub-daily samples into daily means.
type WeatherClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	cities  []config.City
}

func NewWeatherClient(baseURL, apiKey string, cities []config.City, timeout time.Duration) *WeatherClient {
	return &WeatherClient{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		cities:  cities,
	}
}

type forecastPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

// FetchDailyAggregates fetches every city's forecast. A failing city is
// logged and skipped; all cities failing yields an empty result rather
// than an error, so a flaky weather provider never blocks the pipeline.
func (c *WeatherClient) FetchDailyAggregates(ctx context.Context) ([]model.WeatherDailyAggregate, error) {
	var all []model.WeatherDailyAggregate

	for _, city := range c.cities {
		aggs, err := c.fetchCity(ctx, city)
		if err != nil {
			log.Printf("[WARN] weather: %s: %v", city.Name, err)
			continue
		}
		all = append(all, aggs...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].City != all[j].City {
			return all[i].City < all[j].City
		}
		return all[i].Date.Before(all[j].Date)
	})
	return all, nil
}

func (c *WeatherClient) fetchCity(ctx context.Context, city config.City) ([]model.WeatherDailyAggregate, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%.4f", city.Lat),
			"lon":   fmt.Sprintf("%.4f", city.Lon),
			"units": "metric",
			"appid": c.apiKey,
		}).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode())
	}

	var payload forecastPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("%w: forecast list is empty", ErrParse)
	}

	type acc struct {
		temp, wind float64
		n          int
	}
	byDate := make(map[time.Time]*acc)
	for _, sample := range payload.List {
		ts := time.Unix(sample.Dt, 0).UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		a, ok := byDate[day]
		if !ok {
			a = &acc{}
			byDate[day] = a
		}
		a.temp += sample.Main.Temp
		a.wind += sample.Wind.Speed
		a.n++
	}

	aggs := make([]model.WeatherDailyAggregate, 0, len(byDate))
	for day, a := range byDate {
		aggs = append(aggs, model.WeatherDailyAggregate{
			City:          city.Name,
			Date:          day,
			TempMean:      a.temp / float64(a.n),
			WindSpeedMean: a.wind / float64(a.n),
		})
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Date.Before(aggs[j].Date) })
	return aggs, nil
}
