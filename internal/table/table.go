package table

import (
	"fmt"
	"sort"
	"strings"
)

// Table is a column-indexed, row-ordered in-memory table. Every pipeline
// stage produces a fresh Table; a stage never mutates its input once the
// producing stage has handed it off.
type Table struct {
	name string
	cols []string
	idx  map[string]int
	rows [][]Value
}

// New creates an empty table with the given columns.
func New(name string, cols ...string) *Table {
	t := &Table{name: name}
	for _, c := range cols {
		t.addColumnName(c)
	}
	return t
}

func (t *Table) addColumnName(c string) {
	if t.idx == nil {
		t.idx = make(map[string]int)
	}
	if _, dup := t.idx[c]; dup {
		panic(fmt.Sprintf("table %s: duplicate column %q", t.name, c))
	}
	t.idx[c] = len(t.cols)
	t.cols = append(t.cols, c)
}

func (t *Table) Name() string        { return t.name }
func (t *Table) SetName(name string) { t.name = name }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

func (t *Table) NumRows() int { return len(t.rows) }
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnIndex returns the position of a column, -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.idx[name]; ok {
		return i
	}
	return -1
}

func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// AppendRow adds a row; the value count must match the column count.
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) != len(t.cols) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.name, len(vals), len(t.cols))
	}
	row := make([]Value, len(vals))
	copy(row, vals)
	t.rows = append(t.rows, row)
	return nil
}

// MustAppendRow is AppendRow for construction sites where the arity is static.
func (t *Table) MustAppendRow(vals ...Value) {
	if err := t.AppendRow(vals...); err != nil {
		panic(err)
	}
}

// Value returns the cell at row r and the named column; Null when the column
// does not exist.
func (t *Table) Value(r int, col string) Value {
	i := t.ColumnIndex(col)
	if i < 0 {
		return Null()
	}
	return t.rows[r][i]
}

// At returns the cell by positional index.
func (t *Table) At(r, c int) Value { return t.rows[r][c] }

// Set writes the cell at row r and the named column; no-op when absent.
func (t *Table) Set(r int, col string, v Value) {
	if i := t.ColumnIndex(col); i >= 0 {
		t.rows[r][i] = v
	}
}

// Row returns a copy of row r.
func (t *Table) Row(r int) []Value {
	out := make([]Value, len(t.rows[r]))
	copy(out, t.rows[r])
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := New(t.name, t.cols...)
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		cp := make([]Value, len(row))
		copy(cp, row)
		out.rows[i] = cp
	}
	return out
}

// LowercaseColumns folds every column name to lower case, the first cleaning
// step of every source transformer.
func (t *Table) LowercaseColumns() {
	idx := make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		lc := strings.ToLower(strings.TrimSpace(c))
		// keep the first occurrence on a lowercase collision
		if _, taken := idx[lc]; taken {
			lc = fmt.Sprintf("%s_%d", lc, i)
		}
		t.cols[i] = lc
		idx[lc] = i
	}
	t.idx = idx
}

// Rename changes one column name; reports whether the column existed.
func (t *Table) Rename(old, new string) bool {
	i := t.ColumnIndex(old)
	if i < 0 {
		return false
	}
	delete(t.idx, old)
	t.cols[i] = new
	t.idx[new] = i
	return true
}

// RenameAll applies a rename map, skipping absent columns, and returns the
// renames actually applied.
func (t *Table) RenameAll(renames map[string]string) map[string]string {
	applied := make(map[string]string)
	// deterministic application order
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		if t.Rename(old, renames[old]) {
			applied[old] = renames[old]
		}
	}
	return applied
}

// DropColumns removes the named columns when present and returns how many
// were dropped. Absent names are ignored, never an error.
func (t *Table) DropColumns(names ...string) int {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if t.HasColumn(n) {
			drop[n] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	keep := make([]int, 0, len(t.cols))
	newCols := make([]string, 0, len(t.cols))
	for i, c := range t.cols {
		if !drop[c] {
			keep = append(keep, i)
			newCols = append(newCols, c)
		}
	}
	for r, row := range t.rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		t.rows[r] = nr
	}
	t.cols = newCols
	t.idx = make(map[string]int, len(newCols))
	for i, c := range newCols {
		t.idx[c] = i
	}
	return len(drop)
}

// Select returns a new table with only the named columns, in the given order.
// Absent columns are skipped.
func (t *Table) Select(cols ...string) *Table {
	var keep []string
	var srcIdx []int
	for _, c := range cols {
		if i := t.ColumnIndex(c); i >= 0 {
			keep = append(keep, c)
			srcIdx = append(srcIdx, i)
		}
	}
	out := New(t.name, keep...)
	for _, row := range t.rows {
		nr := make([]Value, len(srcIdx))
		for j, i := range srcIdx {
			nr[j] = row[i]
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// AddColumn appends a column filled with the given value.
func (t *Table) AddColumn(name string, fill Value) {
	t.addColumnName(name)
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], fill)
	}
}

// Filter returns the rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(r int) bool) *Table {
	out := New(t.name, t.cols...)
	for r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, t.Row(r))
		}
	}
	return out
}

// Partition splits the table into rows matching pred and rows that do not,
// both preserving load order. Used where dropped rows must survive as a side
// output instead of disappearing.
func (t *Table) Partition(pred func(r int) bool) (matched, rest *Table) {
	matched = New(t.name, t.cols...)
	rest = New(t.name, t.cols...)
	for r := range t.rows {
		if pred(r) {
			matched.rows = append(matched.rows, t.Row(r))
		} else {
			rest.rows = append(rest.rows, t.Row(r))
		}
	}
	return matched, rest
}

// SortBy stable-sorts rows ascending by the named column. Null cells sort
// last. Cells compare as numbers, times or rendered strings by kind.
func (t *Table) SortBy(col string) {
	i := t.ColumnIndex(col)
	if i < 0 {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		return lessValue(t.rows[a][i], t.rows[b][i])
	})
}

func lessValue(a, b Value) bool {
	if a.IsNull() {
		return false
	}
	if b.IsNull() {
		return true
	}
	if da, ok := a.Decimal(); ok {
		if db, ok2 := b.Decimal(); ok2 {
			return da.LessThan(db)
		}
	}
	if ta, ok := a.Time(); ok {
		if tb, ok2 := b.Time(); ok2 {
			return ta.Before(tb)
		}
	}
	return a.String() < b.String()
}

// DropDuplicates removes rows that are exactly equal to an earlier row.
func (t *Table) DropDuplicates() *Table {
	seen := make(map[string]bool, len(t.rows))
	out := New(t.name, t.cols...)
	for _, row := range t.rows {
		k := rowKeyAll(row)
		if seen[k] {
			continue
		}
		seen[k] = true
		cp := make([]Value, len(row))
		copy(cp, row)
		out.rows = append(out.rows, cp)
	}
	return out
}

// DropDuplicatesBy keeps the first row per key over the named columns.
func (t *Table) DropDuplicatesBy(cols ...string) *Table {
	idxs := make([]int, 0, len(cols))
	for _, c := range cols {
		if i := t.ColumnIndex(c); i >= 0 {
			idxs = append(idxs, i)
		}
	}
	seen := make(map[string]bool, len(t.rows))
	out := New(t.name, t.cols...)
	for _, row := range t.rows {
		k := rowKey(row, idxs)
		if seen[k] {
			continue
		}
		seen[k] = true
		cp := make([]Value, len(row))
		copy(cp, row)
		out.rows = append(out.rows, cp)
	}
	return out
}

const keySep = "\x1f"

func rowKey(row []Value, idxs []int) string {
	parts := make([]string, len(idxs))
	for j, i := range idxs {
		parts[j] = fmt.Sprintf("%d:%s", row[i].Kind(), row[i].String())
	}
	return strings.Join(parts, keySep)
}

func rowKeyAll(row []Value) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprintf("%d:%s", v.Kind(), v.String())
	}
	return strings.Join(parts, keySep)
}

// Concat appends tables sheet by sheet the way the loader stacks monthly
// extracts: the result carries the union of all columns in first-seen order,
// missing cells are null, and any column-set drift between parts is reported.
func Concat(name string, parts ...*Table) (*Table, []string) {
	var warnings []string
	if len(parts) == 0 {
		return New(name), warnings
	}

	var cols []string
	seen := make(map[string]bool)
	for _, p := range parts {
		for _, c := range p.cols {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}

	first := make(map[string]bool, len(parts[0].cols))
	for _, c := range parts[0].cols {
		first[c] = true
	}
	for i, p := range parts[1:] {
		var missing, extra []string
		cur := make(map[string]bool, len(p.cols))
		for _, c := range p.cols {
			cur[c] = true
			if !first[c] {
				extra = append(extra, c)
			}
		}
		for c := range first {
			if !cur[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 || len(extra) > 0 {
			sort.Strings(missing)
			sort.Strings(extra)
			warnings = append(warnings, fmt.Sprintf(
				"%s: part %d column drift (missing %v, extra %v)", name, i+2, missing, extra))
		}
	}

	out := New(name, cols...)
	for _, p := range parts {
		srcIdx := make([]int, len(cols))
		for j, c := range cols {
			srcIdx[j] = p.ColumnIndex(c)
		}
		for _, row := range p.rows {
			nr := make([]Value, len(cols))
			for j, i := range srcIdx {
				if i < 0 {
					nr[j] = Null()
				} else {
					nr[j] = row[i]
				}
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out, warnings
}
