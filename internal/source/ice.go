package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"

	"ukatrack/internal/model"
)

// ICEScraper extracts the front-month UKA futures settlement price from
// the ICE product page, which renders its contract table client-side.
type ICEScraper struct {
	pageURL  string
	contract string
	wait     time.Duration
	debugDir string // rendered-page capture for post-mortems; "" disables
}

// NewICEScraper builds a scraper. The contract label is the rolling
// front-month code (e.g. "Dec25") and always comes from configuration.
func NewICEScraper(pageURL, contract string, wait time.Duration, debugDir string) *ICEScraper {
	return &ICEScraper{
		pageURL:  pageURL,
		contract: contract,
		wait:     wait,
		debugDir: debugDir,
	}
}

// FetchFrontMonth renders the page in a headless browser, waits a bounded
// time for the contract table, and returns today's PricePoint for the
// configured contract.
func (s *ICEScraper) FetchFrontMonth(ctx context.Context) (*model.PricePoint, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, s.wait)
	defer cancelRender()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(s.pageURL),
		chromedp.Evaluate(`window.scrollBy(0, 300);`, nil),
		chromedp.WaitReady("table", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no table within %s at %s", ErrRenderTimeout, s.wait, s.pageURL)
		}
		return nil, fmt.Errorf("%w: render %s: %v", ErrUpstreamUnavailable, s.pageURL, err)
	}

	if s.debugDir != "" {
		s.capture(html)
	}

	return s.parseTable(html, time.Now())
}

// parseTable scans the rendered contract table for the configured label.
// Rows whose price cell fails coercion are skipped; a failing price on
// the matching row is a ParseError.
func (s *ICEScraper) parseTable(html string, now time.Time) (*model.PricePoint, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: contract table", ErrElementNotFound)
	}

	var point *model.PricePoint
	var parseFailure error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cols := row.Find("td")
		if cols.Length() < 2 {
			return true // header or spacer row
		}
		label := strings.TrimSpace(cols.Eq(0).Text())
		if label != s.contract {
			return true
		}

		raw := strings.TrimSpace(cols.Eq(1).Text())
		cleaned := strings.ReplaceAll(raw, ",", "")
		price, err := decimal.NewFromString(cleaned)
		if err != nil || !price.IsPositive() {
			parseFailure = fmt.Errorf("%w: price %q for contract %s", ErrParse, raw, s.contract)
			return false
		}

		point = &model.PricePoint{
			Date:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Price: price,
		}
		return false
	})

	if parseFailure != nil {
		return nil, parseFailure
	}
	if point == nil {
		return nil, fmt.Errorf("%w: %q", ErrContractNotFound, s.contract)
	}
	return point, nil
}

func (s *ICEScraper) capture(html string) {
	path := filepath.Join(s.debugDir, "debug_ice.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		log.Printf("[WARN] ice: write debug capture: %v", err)
	}
}
