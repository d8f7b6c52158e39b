// Package frame provides a small ordered-column table used to carry game
// feature rows between the fetch, enrichment and store layers. The tracked
// roster makes the column set dynamic (one block of columns per player
// surname), so rows cannot be fixed structs; column order is preserved
// because the persisted schema is positional on first write.
package frame

import (
	"fmt"
	"sort"
)

// Frame is a wide table with named, ordered columns. Cell values are
// scalars (string, int, int64, float64) or nil.
type Frame struct {
	cols []string
	rows []map[string]any
}

// New creates an empty frame with the given columns.
func New(cols ...string) *Frame {
	f := &Frame{cols: make([]string, 0, len(cols))}
	for _, c := range cols {
		f.AddColumn(c)
	}
	return f
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.cols {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column if it is not already present. Existing rows
// hold nil for it until set.
func (f *Frame) AddColumn(name string) {
	if !f.HasColumn(name) {
		f.cols = append(f.cols, name)
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Append adds a row. Keys not yet known become new columns, in the order
// they first appear in the frame's column list, then sorted for
// reproducibility.
func (f *Frame) Append(row map[string]any) {
	extra := make([]string, 0)
	for k := range row {
		if !f.HasColumn(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	f.cols = append(f.cols, extra...)

	copied := make(map[string]any, len(row))
	for k, v := range row {
		copied[k] = v
	}
	f.rows = append(f.rows, copied)
}

// Value returns the cell at row i, or nil when the column is unset.
func (f *Frame) Value(i int, col string) any {
	return f.rows[i][col]
}

// Set writes the cell at row i, adding the column if needed.
func (f *Frame) Set(i int, col string, v any) {
	f.AddColumn(col)
	f.rows[i][col] = v
}

// Int returns the cell at row i coerced to int. Nil cells and
// non-numeric values coerce to 0.
func (f *Frame) Int(i int, col string) int {
	switch v := f.rows[i][col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// String returns the cell at row i as a string. Nil cells yield "".
func (f *Frame) String(i int, col string) string {
	switch v := f.rows[i][col].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SortBy stable-sorts rows ascending by the string form of a column.
// ISO dates sort chronologically under this ordering.
func (f *Frame) SortBy(col string) {
	sort.SliceStable(f.rows, func(i, j int) bool {
		return f.String(i, col) < f.String(j, col)
	})
}

// Filter returns a new frame holding the rows for which keep returns true,
// in their original order, sharing no row storage with f.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out := New(f.cols...)
	for i := range f.rows {
		if keep(i) {
			out.Append(f.rows[i])
		}
	}
	return out
}

// Select returns a new frame projected down to the given columns, in the
// given order. Unknown columns are carried as all-nil.
func (f *Frame) Select(cols ...string) *Frame {
	out := New(cols...)
	for i := range f.rows {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c] = f.rows[i][c]
		}
		out.Append(row)
	}
	return out
}

// Rename returns a new frame with every column name passed through fn.
// Cell values are carried over unchanged.
func (f *Frame) Rename(fn func(string) string) *Frame {
	cols := make([]string, len(f.cols))
	for i, c := range f.cols {
		cols[i] = fn(c)
	}
	out := New(cols...)
	for i := range f.rows {
		row := make(map[string]any, len(f.cols))
		for _, c := range f.cols {
			row[fn(c)] = f.rows[i][c]
		}
		out.Append(row)
	}
	return out
}

// Concat concatenates frames vertically. Columns are the union, ordered by
// first appearance. A nil or empty frame contributes nothing.
func Concat(frames ...*Frame) *Frame {
	out := &Frame{}
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, c := range f.cols {
			out.AddColumn(c)
		}
		for i := range f.rows {
			out.Append(f.rows[i])
		}
	}
	return out
}
