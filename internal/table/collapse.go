package table

import "github.com/shopspring/decimal"

// CollapseStats reports what a duplicate collapse did.
type CollapseStats struct {
	Groups    int `json:"groups"`    // duplicated key groups found
	RowsIn    int `json:"rows_in"`   // rows belonging to those groups
	RowsOut   int `json:"rows_out"`  // rows after collapsing (== Groups)
	Untouched int `json:"untouched"` // rows with a unique key, passed through
}

// CollapseDuplicates merges rows that share a key over the named columns.
// Only duplicated groups are aggregated; rows with a unique key pass through
// untouched, so a run over already-clean data is the identity. Within a
// duplicated group, numeric columns are summed and every other column keeps
// its first value. A column counts as numeric when all of its non-null cells
// in the group are numbers. Output preserves first-occurrence order.
func CollapseDuplicates(t *Table, on []string) (*Table, CollapseStats) {
	idxs := make([]int, 0, len(on))
	for _, c := range on {
		if i := t.ColumnIndex(c); i >= 0 {
			idxs = append(idxs, i)
		}
	}

	counts := make(map[string]int, t.NumRows())
	for _, row := range t.rows {
		counts[rowKey(row, idxs)]++
	}

	var stats CollapseStats
	out := New(t.name, t.cols...)
	merged := make(map[string][]Value)
	var groupOrder []string

	keySet := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		keySet[i] = true
	}

	for _, row := range t.rows {
		k := rowKey(row, idxs)
		if counts[k] == 1 {
			stats.Untouched++
			cp := make([]Value, len(row))
			copy(cp, row)
			out.rows = append(out.rows, cp)
			continue
		}
		stats.RowsIn++
		acc, started := merged[k]
		if !started {
			cp := make([]Value, len(row))
			copy(cp, row)
			merged[k] = cp
			groupOrder = append(groupOrder, k)
			// placeholder keeps the group's position in the output
			out.rows = append(out.rows, nil)
			continue
		}
		for i := range acc {
			if keySet[i] {
				continue
			}
			a, aNum := acc[i].AsNumber()
			b, bNum := row[i].AsNumber()
			switch {
			case acc[i].IsNull() && bNum:
				acc[i] = Number(b)
			case aNum && bNum:
				acc[i] = Number(a.Add(b))
			}
			// non-numeric columns keep the first value
		}
	}

	// fill the placeholders in first-occurrence order
	gi := 0
	for r := range out.rows {
		if out.rows[r] == nil {
			out.rows[r] = merged[groupOrder[gi]]
			gi++
		}
	}

	stats.Groups = len(groupOrder)
	stats.RowsOut = stats.Groups
	return out, stats
}

// GroupSum aggregates one numeric column by the named key columns, keeping
// first-occurrence order. Null and non-numeric cells contribute zero.
func GroupSum(t *Table, on []string, col, outName string) *Table {
	idxs := make([]int, 0, len(on))
	keep := make([]string, 0, len(on))
	for _, c := range on {
		if i := t.ColumnIndex(c); i >= 0 {
			idxs = append(idxs, i)
			keep = append(keep, c)
		}
	}
	ci := t.ColumnIndex(col)

	sums := make(map[string]decimal.Decimal, t.NumRows())
	firsts := make(map[string][]Value)
	var order []string
	for _, row := range t.rows {
		k := rowKey(row, idxs)
		if _, ok := firsts[k]; !ok {
			kv := make([]Value, len(idxs))
			for j, i := range idxs {
				kv[j] = row[i]
			}
			firsts[k] = kv
			order = append(order, k)
		}
		if ci >= 0 {
			if d, ok := row[ci].AsNumber(); ok {
				sums[k] = sums[k].Add(d)
			}
		}
	}

	out := New(t.name, append(keep, outName)...)
	for _, k := range order {
		row := append(append([]Value{}, firsts[k]...), Number(sums[k]))
		out.rows = append(out.rows, row)
	}
	return out
}
