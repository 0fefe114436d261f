package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"ukatrack/internal/model"
)

// segmentTimeLayout matches the API's ISO-8601 minute-precision form.
const segmentTimeLayout = "2006-01-02T15:04Z"

// Segment is one bounded window of a long-range query.
type Segment struct {
	From time.Time
	To   time.Time
}

// SegmentRange partitions [start, end) into consecutive windows of at
// most spanDays each, in chronological order.
func SegmentRange(start, end time.Time, spanDays int) []Segment {
	var segments []Segment
	for cursor := start; cursor.Before(end); {
		next := cursor.AddDate(0, 0, spanDays)
		if next.After(end) {
			next = end
		}
		segments = append(segments, Segment{From: cursor, To: next})
		cursor = next
	}
	return segments
}

// IntensityClient fetches national carbon-intensity data. The API caps
// each query at a 30-day span, so long ranges go through SegmentRange.
type IntensityClient struct {
	client      *resty.Client
	baseURL     string
	segmentDays int
}

func NewIntensityClient(baseURL string, segmentDays int, timeout time.Duration) *IntensityClient {
	client := newHTTPClient(timeout)
	client.SetHeader("Accept", "application/json")
	return &IntensityClient{client: client, baseURL: baseURL, segmentDays: segmentDays}
}

type intensityEnvelope struct {
	Data []intensityEntry `json:"data"`
}

type intensityEntry struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Intensity struct {
		Actual   *int   `json:"actual"`
		Forecast *int   `json:"forecast"`
		Index    string `json:"index"`
	} `json:"intensity"`
}

// FetchRange fetches [start, end) one segment at a time, in order. If a
// segment fails, the rows accumulated so far are returned with a Partial
// marker instead of an error: callers building retrospective charts
// prefer a truncated series over none. Only a failure before any rows
// arrive propagates as an error.
func (c *IntensityClient) FetchRange(ctx context.Context, start, end time.Time) ([]model.IntensitySample, *Partial, error) {
	var samples []model.IntensitySample

	for _, seg := range SegmentRange(start, end, c.segmentDays) {
		batch, err := c.fetchSegment(ctx, seg)
		if err != nil {
			if len(samples) == 0 {
				return nil, nil, err
			}
			return dedupeSamples(samples), &Partial{FailedAt: seg.From, Cause: err}, nil
		}
		samples = append(samples, batch...)
	}

	return dedupeSamples(samples), nil, nil
}

// Current fetches the single current half-hour window.
func (c *IntensityClient) Current(ctx context.Context) (*model.IntensitySample, error) {
	url := c.baseURL + "/intensity"
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrUpstreamUnavailable, resp.StatusCode(), url)
	}

	var envelope intensityEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data array", ErrParse)
	}

	sample, err := flattenEntry(envelope.Data[0])
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

func (c *IntensityClient) fetchSegment(ctx context.Context, seg Segment) ([]model.IntensitySample, error) {
	url := fmt.Sprintf("%s/intensity/%s/%s",
		c.baseURL,
		seg.From.UTC().Format(segmentTimeLayout),
		seg.To.UTC().Format(segmentTimeLayout))

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: segment %s: %v", ErrUpstreamUnavailable, seg.From.Format(segmentTimeLayout), err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d for segment %s", ErrUpstreamUnavailable, resp.StatusCode(), seg.From.Format(segmentTimeLayout))
	}

	var envelope intensityEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("%w: segment %s: %v", ErrParse, seg.From.Format(segmentTimeLayout), err)
	}

	samples := make([]model.IntensitySample, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		sample, err := flattenEntry(entry)
		if err != nil {
			// Malformed row: drop it, keep the segment.
			continue
		}
		if sample.Empty() {
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// flattenEntry lifts the nested intensity object into top-level fields.
func flattenEntry(entry intensityEntry) (model.IntensitySample, error) {
	from, err := time.Parse(segmentTimeLayout, entry.From)
	if err != nil {
		return model.IntensitySample{}, fmt.Errorf("%w: window start %q", ErrParse, entry.From)
	}
	to, err := time.Parse(segmentTimeLayout, entry.To)
	if err != nil {
		return model.IntensitySample{}, fmt.Errorf("%w: window end %q", ErrParse, entry.To)
	}
	if !from.Before(to) {
		return model.IntensitySample{}, fmt.Errorf("%w: window start %s not before end %s", ErrParse, entry.From, entry.To)
	}
	index, err := model.ParseIntensityIndex(entry.Intensity.Index)
	if err != nil {
		return model.IntensitySample{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return model.IntensitySample{
		From:     from,
		To:       to,
		Actual:   entry.Intensity.Actual,
		Forecast: entry.Intensity.Forecast,
		Index:    index,
	}, nil
}

// dedupeSamples collapses duplicate window starts from overlapping
// segment boundaries, keeping the most recently fetched value, and
// returns the series sorted by window start.
func dedupeSamples(samples []model.IntensitySample) []model.IntensitySample {
	byStart := make(map[int64]int, len(samples))
	out := make([]model.IntensitySample, 0, len(samples))
	for _, s := range samples {
		key := s.From.Unix()
		if at, seen := byStart[key]; seen {
			out[at] = s
			continue
		}
		byStart[key] = len(out)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}
