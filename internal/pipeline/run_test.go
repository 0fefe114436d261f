package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukatrack/internal/config"
)

func intensityHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, `{"data":[{"from":"2025-06-02T10:00Z","to":"2025-06-02T10:30Z","intensity":{"actual":120,"forecast":110,"index":"moderate"}}]}`)
	}
}

func newsHandler() http.HandlerFunc {
	pub := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC1123Z)
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>UKA rallies</title><link>https://example.org/a</link><pubDate>%s</pubDate>
<source url="https://example.org">Wire</source></item></channel></rss>`, pub)
	}
}

// testConfig wires only httptest-backed sources; everything else is
// left unconfigured and therefore absent from the run.
func testConfig(t *testing.T, intensityURL, newsURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir(), HTTPTimeoutSeconds: 5}
	cfg.Intensity.BaseURL = intensityURL
	cfg.Intensity.SegmentDays = 30
	cfg.News.FeedURL = newsURL
	cfg.News.Query = "UKA"
	cfg.News.MaxItems = 6
	cfg.News.RecencyDays = 30
	return cfg
}

func TestRunnerRun(t *testing.T) {
	t.Run("independent sources run to completion despite one failure", func(t *testing.T) {
		intensity := httptest.NewServer(intensityHandler(http.StatusOK))
		defer intensity.Close()
		news := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer news.Close()

		cfg := testConfig(t, intensity.URL, news.URL)
		runner, err := New(cfg)
		require.NoError(t, err)
		defer runner.Close()

		report, err := runner.Run(context.Background())
		require.NoError(t, err) // one healthy source is enough

		byName := map[string]SourceResult{}
		for _, res := range report.Results {
			byName[res.Source] = res
		}
		require.Contains(t, byName, "carbon_intensity")
		require.Contains(t, byName, "news")
		assert.NoError(t, byName["carbon_intensity"].Err)
		assert.Equal(t, 1, byName["carbon_intensity"].Rows)
		assert.Error(t, byName["news"].Err)

		// The healthy source's store was written.
		_, err = os.Stat(cfg.IntensityStorePath())
		assert.NoError(t, err)
		// The failed source left nothing behind.
		_, err = os.Stat(cfg.NewsSnapshotPath())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("second identical run leaves stores byte-identical", func(t *testing.T) {
		intensity := httptest.NewServer(intensityHandler(http.StatusOK))
		defer intensity.Close()
		news := httptest.NewServer(newsHandler())
		defer news.Close()

		cfg := testConfig(t, intensity.URL, news.URL)
		runner, err := New(cfg)
		require.NoError(t, err)
		defer runner.Close()

		_, err = runner.Run(context.Background())
		require.NoError(t, err)
		first, err := os.ReadFile(cfg.IntensityStorePath())
		require.NoError(t, err)

		_, err = runner.Run(context.Background())
		require.NoError(t, err)
		second, err := os.ReadFile(cfg.IntensityStorePath())
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
	})

	t.Run("every source failing surfaces an error for the scheduler", func(t *testing.T) {
		down := httptest.NewServer(intensityHandler(http.StatusServiceUnavailable))
		defer down.Close()

		cfg := testConfig(t, down.URL, down.URL)
		runner, err := New(cfg)
		require.NoError(t, err)
		defer runner.Close()

		report, err := runner.Run(context.Background())
		require.Error(t, err)
		assert.True(t, report.AllFailed())
	})

	t.Run("run outcomes are journalled when a db path is set", func(t *testing.T) {
		intensity := httptest.NewServer(intensityHandler(http.StatusOK))
		defer intensity.Close()
		news := httptest.NewServer(newsHandler())
		defer news.Close()

		cfg := testConfig(t, intensity.URL, news.URL)
		cfg.Database.SQLitePath = cfg.DataDir + "/ukatrack.db"

		runner, err := New(cfg)
		require.NoError(t, err)
		defer runner.Close()

		_, err = runner.Run(context.Background())
		require.NoError(t, err)
		require.NotNil(t, runner.runlog)

		entries, err := runner.runlog.Recent(10)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestBackfillIntensity(t *testing.T) {
	intensity := httptest.NewServer(intensityHandler(http.StatusOK))
	defer intensity.Close()

	cfg := testConfig(t, intensity.URL, "")
	runner, err := New(cfg)
	require.NoError(t, err)
	defer runner.Close()

	rows, truncated, err := runner.BackfillIntensity(context.Background(),
		time.Now().UTC().AddDate(0, 0, -40))
	require.NoError(t, err)
	assert.False(t, truncated)
	// The fixed upstream sample dedupes to a single window.
	assert.Equal(t, 1, rows)
}
