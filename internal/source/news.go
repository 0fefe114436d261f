package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ukatrack/internal/model"
)

// RSS feed document structure.
type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// NewsClient queries the news search feed with a boolean keyword
// expression. The feed has no date-bounded query support, so recency
// filtering happens post-fetch via Recent.
type NewsClient struct {
	client   *resty.Client
	feedURL  string
	query    string
	maxItems int
}

func NewNewsClient(feedURL, query string, maxItems int, timeout time.Duration) *NewsClient {
	return &NewsClient{
		client:   newHTTPClient(timeout),
		feedURL:  feedURL,
		query:    query,
		maxItems: maxItems,
	}
}

// pubDateFormats covers the date variants feeds actually emit.
var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Fetch returns at most maxItems articles, newest first. Items whose
// publish date fails to parse keep a zero time and sort last: the
// timestamp is advisory, never a reason to drop an article. An empty
// feed is a valid result, not an error.
func (c *NewsClient) Fetch(ctx context.Context) ([]model.NewsItem, error) {
	searchURL := fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", c.feedURL, url.QueryEscape(c.query))

	var body []byte
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := c.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("%w: status %d from news feed", ErrUpstreamUnavailable, resp.StatusCode())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}

	var feed rss
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	items := make([]model.NewsItem, 0, len(feed.Channel.Items))
	for _, entry := range feed.Channel.Items {
		item := model.NewsItem{
			Title:     strings.TrimSpace(entry.Title),
			Link:      strings.TrimSpace(entry.Link),
			Source:    strings.TrimSpace(entry.Source.Text),
			Summary:   strings.TrimSpace(entry.Description),
			Published: parsePubDate(entry.PubDate),
		}
		if item.Title == "" || item.Link == "" {
			continue
		}
		if item.Source == "" {
			item.Source = "Unknown Source"
		}
		items = append(items, item)
	}

	sortNewsItems(items)
	if len(items) > c.maxItems {
		items = items[:c.maxItems]
	}
	return items, nil
}

// Recent applies the recency window as a post-fetch filter. Items with
// no parseable publish time are excluded: recency cannot be established
// for them. An empty result is a valid state.
func Recent(items []model.NewsItem, window time.Duration, now time.Time) []model.NewsItem {
	cutoff := now.Add(-window)
	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if item.HasPublished() && item.Published.After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range pubDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// sortNewsItems orders newest first; items without a timestamp go last.
func sortNewsItems(items []model.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.HasPublished() && b.HasPublished():
			return a.Published.After(b.Published)
		case a.HasPublished():
			return true
		default:
			return false
		}
	})
}
