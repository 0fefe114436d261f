package timeseries

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeyKind says how a frame's key column is interpreted and canonicalized.
type KeyKind int

const (
	// KeyDate keys rows by calendar day. Timestamps that differ only in
	// time-of-day collapse to the same key.
	KeyDate KeyKind = iota
	// KeyTime keys rows by timestamp at minute precision, UTC.
	KeyTime
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Row is one record of a frame. Cells map column name to the raw cell
// value; an absent or empty cell is null.
type Row struct {
	Key    time.Time
	Series string
	Cells  map[string]string
}

// Frame is the tabular shape shared by the consolidator and the CSV store:
// a key column, an optional series column, and ordered value columns.
type Frame struct {
	Kind      KeyKind
	KeyCol    string
	SeriesCol string
	Cols      []string
	Rows      []Row
}

// NewFrame builds an empty frame. seriesCol may be empty for
// single-series data.
func NewFrame(kind KeyKind, keyCol, seriesCol string, cols ...string) *Frame {
	return &Frame{Kind: kind, KeyCol: keyCol, SeriesCol: seriesCol, Cols: cols}
}

// CloneEmpty returns a frame with the same shape and no rows.
func (f *Frame) CloneEmpty() *Frame {
	cols := make([]string, len(f.Cols))
	copy(cols, f.Cols)
	return &Frame{Kind: f.Kind, KeyCol: f.KeyCol, SeriesCol: f.SeriesCol, Cols: cols}
}

// Append adds a row, canonicalizing its key.
func (f *Frame) Append(key time.Time, series string, cells map[string]string) {
	f.Rows = append(f.Rows, Row{Key: f.Canonical(key), Series: series, Cells: cells})
}

// Canonical normalizes a key to the frame's canonical representation.
// For KeyDate frames this strips time-of-day entirely, which is where
// date-vs-datetime duplication bugs come from.
func (f *Frame) Canonical(t time.Time) time.Time {
	t = t.UTC()
	if f.Kind == KeyDate {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Minute)
}

// FormatKey renders a canonical key for the store.
func (f *Frame) FormatKey(t time.Time) string {
	if f.Kind == KeyDate {
		return t.Format(dateLayout)
	}
	return t.Format(timeLayout)
}

// ParseKey parses a stored or upstream key in any supported format and
// canonicalizes it.
func (f *Frame) ParseKey(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return f.Canonical(t), nil
}

func (f *Frame) rowKey(r Row) string {
	if f.SeriesCol == "" {
		return f.FormatKey(r.Key)
	}
	return f.FormatKey(r.Key) + "\x00" + r.Series
}

// Sort orders rows ascending by key, then by series for multi-series frames.
func (f *Frame) Sort() {
	sort.SliceStable(f.Rows, func(i, j int) bool {
		if !f.Rows[i].Key.Equal(f.Rows[j].Key) {
			return f.Rows[i].Key.Before(f.Rows[j].Key)
		}
		return f.Rows[i].Series < f.Rows[j].Series
	})
}

// Header returns the CSV header for this frame.
func (f *Frame) Header() []string {
	header := []string{f.KeyCol}
	if f.SeriesCol != "" {
		header = append(header, f.SeriesCol)
	}
	return append(header, f.Cols...)
}

// dateFormats covers the representations seen across the upstream
// sources and the persisted stores.
var dateFormats = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 2 15:04:05 MST 2006",
	"01/02/2006",
}

// ParseDate parses a date or timestamp in any supported format.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}

// IsNull reports whether a cell carries no usable value.
func IsNull(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// CoerceNumeric strips thousands separators and validates that a cell is
// numeric, returning the normalized text. ok is false for malformed cells.
func CoerceNumeric(cell string) (string, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cleaned == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return "", false
	}
	return cleaned, true
}
