package timeseries

// Consolidate merges previously persisted rows with a newly fetched frame
// of the same shape. Keys are canonicalized before comparison, duplicates
// resolve last-write-wins, and the result is sorted ascending by key.
//
// Conflict policy for degraded re-fetches: the merge is field-level. A
// null (empty/NaN) cell in the new row never erases a non-null value the
// store already holds for that key; non-null new cells always win. This
// keeps the pipeline idempotent even when an upstream re-serves a key
// with a thinner payload.
func Consolidate(old, incoming *Frame) *Frame {
	out := old.CloneEmpty()

	index := make(map[string]int)
	add := func(f *Frame) {
		for _, r := range f.Rows {
			// Either side may carry uncanonicalized keys (e.g. a
			// datetime against a date-keyed store), so normalize
			// before comparing.
			row := Row{Key: out.Canonical(r.Key), Series: r.Series, Cells: copyCells(r.Cells)}
			id := out.rowKey(row)
			at, seen := index[id]
			if !seen {
				index[id] = len(out.Rows)
				out.Rows = append(out.Rows, row)
				continue
			}
			mergeCells(out.Rows[at].Cells, row.Cells, out.Cols)
		}
	}
	add(old)
	add(incoming)

	out.Sort()
	return out
}

func mergeCells(stored, fetched map[string]string, cols []string) {
	for _, col := range cols {
		v, ok := fetched[col]
		if !ok || IsNull(v) {
			continue
		}
		stored[col] = v
	}
}

func copyCells(cells map[string]string) map[string]string {
	out := make(map[string]string, len(cells))
	for k, v := range cells {
		out[k] = v
	}
	return out
}

// Equal reports whether two frames hold identical rows in identical
// order. Used to verify idempotent re-runs.
func Equal(a, b *Frame) bool {
	if len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		ra, rb := a.Rows[i], b.Rows[i]
		if !ra.Key.Equal(rb.Key) || ra.Series != rb.Series {
			return false
		}
		for _, col := range a.Cols {
			if ra.Cells[col] != rb.Cells[col] {
				return false
			}
		}
	}
	return true
}
