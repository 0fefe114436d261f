package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ukatrack/internal/config"
	"ukatrack/internal/model"
	"ukatrack/internal/source"
	"ukatrack/internal/store"
	"ukatrack/internal/timeseries"
)

// SourceResult is one adapter's outcome for a run.
type SourceResult struct {
	Source    string
	Rows      int
	Truncated bool
	Err       error
}

// Report aggregates all source outcomes of one pipeline run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SourceResult
}

// AllFailed reports whether no source produced any data.
func (r *Report) AllFailed() bool {
	for _, res := range r.Results {
		if res.Err == nil {
			return false
		}
	}
	return len(r.Results) > 0
}

// Runner wires configuration, source adapters and stores into one batch
// invocation. Construct a fresh Runner per run; it shares no state with
// previous runs beyond the persisted stores.
type Runner struct {
	cfg    *config.Config
	runlog *store.RunLog
}

func New(cfg *config.Config) (*Runner, error) {
	r := &Runner{cfg: cfg}
	if cfg.Database.SQLitePath != "" {
		runlog, err := store.OpenRunLog(cfg.Database.SQLitePath)
		if err != nil {
			// The journal is observability, not pipeline state.
			log.Printf("[WARN] pipeline: open run log: %v", err)
		} else {
			r.runlog = runlog
		}
	}
	return r, nil
}

// Close releases the run journal, if any.
func (r *Runner) Close() {
	if r.runlog != nil {
		_ = r.runlog.Close()
	}
}

type job struct {
	name string
	run  func(ctx context.Context) (rows int, truncated bool, err error)
}

// jobs builds the source list from configuration. A source with no
// configured endpoint (or key, or file) is simply absent from the run.
func (r *Runner) jobs() []job {
	cfg := r.cfg
	var jobs []job

	if cfg.ICE.PageURL != "" && cfg.ICE.Contract != "" {
		jobs = append(jobs, job{name: "uka_scrape", run: r.runScrape})
	}
	if cfg.ICE.HistoryURL != "" {
		jobs = append(jobs, job{name: "uka_history", run: r.runHistory})
	}
	if cfg.Intensity.BaseURL != "" {
		jobs = append(jobs, job{name: "carbon_intensity", run: r.runIntensity})
	}
	if len(cfg.Market.Tickers) > 0 {
		jobs = append(jobs, job{name: "gas_prices", run: r.runMarket})
	}
	if cfg.Weather.APIKey != "" {
		jobs = append(jobs, job{name: "weather", run: r.runWeather})
	}
	if cfg.News.FeedURL != "" {
		jobs = append(jobs, job{name: "news", run: r.runNews})
	}
	if cfg.Allocations.WorkbookPath != "" {
		jobs = append(jobs, job{name: "allocations", run: r.runAllocations})
	}
	return jobs
}

// Run executes every configured source. The adapters are independent,
// so they run concurrently; one source failing never stops the others.
// The returned error is non-nil only when every source failed, which is
// what an external scheduler needs to alert on.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare data dirs: %w", err)
	}

	jobs := r.jobs()
	report := &Report{StartedAt: time.Now(), Results: make([]SourceResult, len(jobs))}

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			rows, truncated, err := j.run(ctx)
			report.Results[i] = SourceResult{Source: j.name, Rows: rows, Truncated: truncated, Err: err}
		}(i, j)
	}
	wg.Wait()
	report.FinishedAt = time.Now()

	for _, res := range report.Results {
		switch {
		case res.Err != nil:
			log.Printf("[ERROR] %s: %v", res.Source, res.Err)
		case res.Truncated:
			log.Printf("[WARN] %s: %d rows (truncated)", res.Source, res.Rows)
		default:
			log.Printf("[INFO] %s: %d rows", res.Source, res.Rows)
		}
		if r.runlog != nil {
			if err := r.runlog.Record(res.Source, res.Rows, res.Truncated, res.Err); err != nil {
				log.Printf("[WARN] run log: %v", err)
			}
		}
	}

	if report.AllFailed() {
		return report, errors.New("all sources failed")
	}
	return report, nil
}

func (r *Runner) runScrape(ctx context.Context) (int, bool, error) {
	debugDir := ""
	if r.cfg.Debug {
		debugDir = r.cfg.DataDir
	}
	scraper := source.NewICEScraper(r.cfg.ICE.PageURL, r.cfg.ICE.Contract, r.cfg.RenderWait(), debugDir)
	point, err := scraper.FetchFrontMonth(ctx)
	if err != nil {
		return 0, false, err
	}
	frame := timeseries.PriceFrame([]model.PricePoint{*point})
	if _, err := store.Upsert(r.cfg.PriceStorePath(), frame); err != nil {
		return 0, false, err
	}
	return 1, false, nil
}

func (r *Runner) runHistory(ctx context.Context) (int, bool, error) {
	client := source.NewICEHistoryClient(r.cfg.ICE.HistoryURL, r.cfg.HTTPTimeout())
	points, err := client.FetchDaily(ctx)
	if err != nil {
		return 0, false, err
	}
	if _, err := store.Upsert(r.cfg.HistoryStorePath(), timeseries.PriceFrame(points)); err != nil {
		return 0, false, err
	}
	return len(points), false, nil
}

func (r *Runner) runIntensity(ctx context.Context) (int, bool, error) {
	client := source.NewIntensityClient(r.cfg.Intensity.BaseURL, r.cfg.Intensity.SegmentDays, r.cfg.HTTPTimeout())
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -r.cfg.Intensity.SegmentDays)
	samples, partial, err := client.FetchRange(ctx, start, end)
	if err != nil {
		return 0, false, err
	}
	if _, err := store.Upsert(r.cfg.IntensityStorePath(), timeseries.IntensityFrame(samples)); err != nil {
		return 0, false, err
	}
	return len(samples), partial != nil, nil
}

// BackfillIntensity fetches the full carbon-intensity history from start
// and merges it into the store. A truncated fetch is persisted as-is:
// partial history is preferable to none.
func (r *Runner) BackfillIntensity(ctx context.Context, start time.Time) (int, bool, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return 0, false, err
	}
	client := source.NewIntensityClient(r.cfg.Intensity.BaseURL, r.cfg.Intensity.SegmentDays, r.cfg.HTTPTimeout())
	samples, partial, err := client.FetchRange(ctx, start, time.Now().UTC())
	if err != nil {
		return 0, false, err
	}
	if partial != nil {
		log.Printf("[WARN] intensity backfill truncated at %s: %v", partial.FailedAt.Format("2006-01-02"), partial.Cause)
	}
	if _, err := store.Upsert(r.cfg.IntensityStorePath(), timeseries.IntensityFrame(samples)); err != nil {
		return 0, false, err
	}
	return len(samples), partial != nil, nil
}

func (r *Runner) runMarket(ctx context.Context) (int, bool, error) {
	client := source.NewMarketDataClient(r.cfg.Market.Tickers, r.cfg.Market.WindowDays)
	bars, err := client.FetchTrailingDaily(ctx)
	if err != nil {
		return 0, false, err
	}
	frame := timeseries.MarketFrame(client.Tickers(), bars)
	if _, err := store.Upsert(r.cfg.MarketStorePath(), frame); err != nil {
		return 0, false, err
	}
	return len(frame.Rows), false, nil
}

func (r *Runner) runWeather(ctx context.Context) (int, bool, error) {
	client := source.NewWeatherClient(r.cfg.Weather.BaseURL, r.cfg.Weather.APIKey, r.cfg.Weather.Cities, r.cfg.HTTPTimeout())
	aggs, err := client.FetchDailyAggregates(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(aggs) == 0 {
		return 0, false, nil
	}
	if _, err := store.Upsert(r.cfg.WeatherStorePath(), timeseries.WeatherFrame(aggs)); err != nil {
		return 0, false, err
	}
	return len(aggs), false, nil
}

func (r *Runner) runNews(ctx context.Context) (int, bool, error) {
	items, err := r.FetchNews(ctx)
	if err != nil {
		return 0, false, err
	}
	if err := store.SaveJSON(r.cfg.NewsSnapshotPath(), items); err != nil {
		return 0, false, err
	}
	return len(items), false, nil
}

// FetchNews returns the latest headline batch without persisting it.
func (r *Runner) FetchNews(ctx context.Context) ([]model.NewsItem, error) {
	client := source.NewNewsClient(r.cfg.News.FeedURL, r.cfg.News.Query, r.cfg.News.MaxItems, r.cfg.HTTPTimeout())
	return client.Fetch(ctx)
}

// RecentNews returns only items inside the configured recency window.
func (r *Runner) RecentNews(ctx context.Context) ([]model.NewsItem, error) {
	items, err := r.FetchNews(ctx)
	if err != nil {
		return nil, err
	}
	window := time.Duration(r.cfg.News.RecencyDays) * 24 * time.Hour
	return source.Recent(items, window, time.Now()), nil
}

func (r *Runner) runAllocations(_ context.Context) (int, bool, error) {
	loader := source.NewAllocationsLoader(
		r.cfg.Allocations.WorkbookPath,
		r.cfg.Allocations.CompanySheet,
		r.cfg.Allocations.IndustrySheet,
	)
	companies, industries, err := loader.Load()
	if err != nil {
		return 0, false, err
	}

	header, rows := timeseries.AllocationRows(companies)
	if err := store.WriteRows(r.cfg.AllocationStorePath("company"), header, rows); err != nil {
		return 0, false, err
	}
	total := len(rows)

	header, rows = timeseries.AllocationRows(industries)
	if err := store.WriteRows(r.cfg.AllocationStorePath("industry"), header, rows); err != nil {
		return 0, false, err
	}
	return total + len(rows), false, nil
}
