package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"ukatrack/internal/timeseries"
)

// ReadFrame loads a persisted frame from path. proto defines the
// expected shape (key kind and columns); a missing file yields an empty
// frame with that shape. Rows whose key fails to parse are dropped.
func ReadFrame(path string, proto *timeseries.Frame) (*timeseries.Frame, error) {
	out := proto.CloneEmpty()

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	if len(records) < 2 {
		return out, nil
	}

	header := records[0]
	for _, record := range records[1:] {
		if len(record) == 0 || len(record) > len(header) {
			continue
		}
		var key string
		var series string
		cells := make(map[string]string)
		for i, cell := range record {
			switch col := header[i]; col {
			case out.KeyCol:
				key = cell
			case out.SeriesCol:
				if out.SeriesCol != "" {
					series = cell
				}
			default:
				cells[col] = cell
			}
		}
		parsed, err := out.ParseKey(key)
		if err != nil {
			continue
		}
		out.Append(parsed, series, cells)
	}
	return out, nil
}

// WriteFrame persists a frame to path via a temporary file and rename,
// so a crash mid-write never truncates the existing store.
func WriteFrame(path string, f *timeseries.Frame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ukatrack-*.csv")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(f.Header()); err != nil {
		tmp.Close()
		return fmt.Errorf("write store header: %w", err)
	}
	for _, row := range f.Rows {
		record := []string{f.FormatKey(row.Key)}
		if f.SeriesCol != "" {
			record = append(record, row.Series)
		}
		for _, col := range f.Cols {
			record = append(record, row.Cells[col])
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write store row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Upsert reads the persisted frame at path, consolidates the incoming
// rows into it and writes the merged result back. Re-running with
// identical input leaves the file byte-for-byte unchanged.
func Upsert(path string, incoming *timeseries.Frame) (*timeseries.Frame, error) {
	existing, err := ReadFrame(path, incoming)
	if err != nil {
		return nil, err
	}
	merged := timeseries.Consolidate(existing, incoming)
	if err := WriteFrame(path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// WriteRows persists non-frame tabular data (e.g. allocation records)
// with the same temp-and-rename discipline.
func WriteRows(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ukatrack-*.csv")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	return os.Rename(tmpPath, path)
}
