package table

import (
	"fmt"
	"sort"
)

// Pivot reshapes a long table to wide form: one output row per index value,
// one output column per (value column, label) pair named "value_label".
// When several input rows land in the same cell, the first non-null wins.
type Pivot struct {
	Index   string   // key column, becomes the first output column
	Columns string   // label column, typically the as-of date
	Values  []string // metric columns to spread
}

// Apply runs the pivot. Output rows are sorted by index value and output
// columns are grouped by metric, each group sorted by label, so that a
// metric's columns read chronologically when labels are ISO dates.
func (p Pivot) Apply(t *Table) (*Table, error) {
	ii := t.ColumnIndex(p.Index)
	if ii < 0 {
		return nil, fmt.Errorf("pivot %s: index column %q missing", t.name, p.Index)
	}
	ci := t.ColumnIndex(p.Columns)
	if ci < 0 {
		return nil, fmt.Errorf("pivot %s: label column %q missing", t.name, p.Columns)
	}
	vis := make([]int, len(p.Values))
	for i, v := range p.Values {
		if vis[i] = t.ColumnIndex(v); vis[i] < 0 {
			return nil, fmt.Errorf("pivot %s: value column %q missing", t.name, v)
		}
	}

	labelSet := make(map[string]bool)
	indexSet := make(map[string]bool)
	var indexOrder []string
	cells := make(map[string]Value) // "metric\x1flabel\x1findex" -> first non-null

	for _, row := range t.rows {
		idx := row[ii].String()
		label := row[ci].String()
		labelSet[label] = true
		if !indexSet[idx] {
			indexSet[idx] = true
			indexOrder = append(indexOrder, idx)
		}
		for j, vi := range vis {
			if row[vi].IsNull() {
				continue
			}
			ck := p.Values[j] + keySep + label + keySep + idx
			if _, taken := cells[ck]; !taken {
				cells[ck] = row[vi]
			}
		}
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	sort.Strings(indexOrder)

	cols := []string{p.Index}
	for _, v := range p.Values {
		for _, l := range labels {
			cols = append(cols, v+"_"+l)
		}
	}

	out := New(t.name, cols...)
	for _, idx := range indexOrder {
		row := make([]Value, 0, len(cols))
		row = append(row, String(idx))
		for _, v := range p.Values {
			for _, l := range labels {
				if cell, ok := cells[v+keySep+l+keySep+idx]; ok {
					row = append(row, cell)
				} else {
					row = append(row, Null())
				}
			}
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}
