package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentRange(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	segments := SegmentRange(start, end, 30)
	require.Len(t, segments, 3)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), segments[0].From)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), segments[0].To)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), segments[1].From)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), segments[1].To)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), segments[2].From)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), segments[2].To)

	assert.Empty(t, SegmentRange(end, start, 30))
}

func intensityBody(entries string) string {
	return fmt.Sprintf(`{"data":[%s]}`, entries)
}

func entry(from, to string, actual, forecast string, index string) string {
	return fmt.Sprintf(`{"from":%q,"to":%q,"intensity":{"actual":%s,"forecast":%s,"index":%q}}`,
		from, to, actual, forecast, index)
}

func TestIntensityFetchRange(t *testing.T) {
	t.Run("partial result when a later segment fails", func(t *testing.T) {
		var requested []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = append(requested, r.URL.Path)
			if strings.Contains(r.URL.Path, "2025-01-31T00:00Z") {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, intensityBody(
				entry("2025-01-01T00:00Z", "2025-01-01T00:30Z", "100", "95", "moderate"),
			))
		}))
		defer server.Close()

		client := NewIntensityClient(server.URL, 30, 5*time.Second)
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

		samples, partial, err := client.FetchRange(context.Background(), start, end)
		require.NoError(t, err)
		require.NotNil(t, partial)
		assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), partial.FailedAt)
		assert.ErrorIs(t, partial.Cause, ErrUpstreamUnavailable)

		// Exactly the rows from the first segment, nothing more.
		require.Len(t, samples, 1)
		assert.Equal(t, 100, *samples[0].Actual)

		// The failing segment ends the fetch: segment 3 is never requested.
		require.Len(t, requested, 2)
	})

	t.Run("segments requested in chronological order", func(t *testing.T) {
		var requested []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = append(requested, r.URL.Path)
			fmt.Fprint(w, intensityBody(""))
		}))
		defer server.Close()

		client := NewIntensityClient(server.URL, 30, 5*time.Second)
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

		_, partial, err := client.FetchRange(context.Background(), start, end)
		require.NoError(t, err)
		assert.Nil(t, partial)

		require.Len(t, requested, 3)
		assert.Contains(t, requested[0], "2025-01-01T00:00Z/2025-01-31T00:00Z")
		assert.Contains(t, requested[1], "2025-01-31T00:00Z/2025-03-02T00:00Z")
		assert.Contains(t, requested[2], "2025-03-02T00:00Z/2025-03-15T00:00Z")
	})

	t.Run("first segment failing is a hard error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewIntensityClient(server.URL, 30, 5*time.Second)
		_, _, err := client.FetchRange(context.Background(),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("all-null samples are dropped, nested values flattened", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, intensityBody(strings.Join([]string{
				entry("2025-01-01T00:00Z", "2025-01-01T00:30Z", "null", "null", ""),
				entry("2025-01-01T00:30Z", "2025-01-01T01:00Z", "null", "110", "low"),
			}, ",")))
		}))
		defer server.Close()

		client := NewIntensityClient(server.URL, 30, 5*time.Second)
		samples, partial, err := client.FetchRange(context.Background(),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, partial)

		require.Len(t, samples, 1)
		assert.Nil(t, samples[0].Actual)
		assert.Equal(t, 110, *samples[0].Forecast)
		assert.Equal(t, "low", string(samples[0].Index))
	})

	t.Run("duplicate window starts keep the latest fetch", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			// Both segments re-serve the same window start with
			// different forecasts; the second fetch must win.
			fmt.Fprint(w, intensityBody(
				entry("2025-01-05T00:00Z", "2025-01-05T00:30Z", "null", fmt.Sprintf("%d", 100+calls), "moderate"),
			))
		}))
		defer server.Close()

		client := NewIntensityClient(server.URL, 5, 5*time.Second)
		samples, _, err := client.FetchRange(context.Background(),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		require.Len(t, samples, 1)
		assert.Equal(t, 102, *samples[0].Forecast)
	})
}

func TestIntensityCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/intensity", r.URL.Path)
		fmt.Fprint(w, intensityBody(
			entry("2025-06-02T10:00Z", "2025-06-02T10:30Z", "140", "150", "high"),
		))
	}))
	defer server.Close()

	client := NewIntensityClient(server.URL, 30, 5*time.Second)
	sample, err := client.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 140, *sample.Actual)
	assert.Equal(t, "high", string(sample.Index))
	assert.True(t, sample.From.Before(sample.To))
}
