package table

import (
	"fmt"
	"strings"
)

// JoinStats records what a single join did, for the run report.
type JoinStats struct {
	Stage       string `json:"stage"`
	LeftRows    int    `json:"left_rows"`
	RightRows   int    `json:"right_rows"`
	ResultRows  int    `json:"result_rows"`
	MatchedRows int    `json:"matched_rows"`
}

// MatchRate is the fraction of left rows that found a right match.
func (s JoinStats) MatchRate() float64 {
	if s.LeftRows == 0 {
		return 0
	}
	return float64(s.MatchedRows) / float64(s.LeftRows)
}

// FannedOut reports whether the join produced more rows than the left side,
// which for a left join means duplicate keys on the right.
func (s JoinStats) FannedOut() bool { return s.ResultRows > s.LeftRows }

// LeftJoin joins right onto left on the named key columns. Left rows without
// a match keep null right-side cells; left rows with several matches fan out,
// matching the relational semantics the downstream counts depend on. Right
// columns colliding with left columns (other than the keys) are suffixed.
func LeftJoin(left, right *Table, on []string, suffix string) (*Table, JoinStats, error) {
	return join(left, right, on, suffix, false)
}

// OuterJoin is LeftJoin plus the right-side rows that matched nothing on the
// left, appended after the left block with the key columns filled from the
// right row.
func OuterJoin(left, right *Table, on []string, suffix string) (*Table, JoinStats, error) {
	return join(left, right, on, suffix, true)
}

func join(left, right *Table, on []string, suffix string, outer bool) (*Table, JoinStats, error) {
	stats := JoinStats{
		Stage:     fmt.Sprintf("%s+%s", left.name, right.name),
		LeftRows:  left.NumRows(),
		RightRows: right.NumRows(),
	}

	leftKey := make([]int, len(on))
	rightKey := make([]int, len(on))
	for i, c := range on {
		if leftKey[i] = left.ColumnIndex(c); leftKey[i] < 0 {
			return nil, stats, fmt.Errorf("join %s: key column %q missing on left", stats.Stage, c)
		}
		if rightKey[i] = right.ColumnIndex(c); rightKey[i] < 0 {
			return nil, stats, fmt.Errorf("join %s: key column %q missing on right", stats.Stage, c)
		}
	}

	onSet := make(map[string]bool, len(on))
	for _, c := range on {
		onSet[c] = true
	}

	// right payload columns, suffixed on collision with the left
	var payloadIdx []int
	var payloadNames []string
	for i, c := range right.cols {
		if onSet[c] {
			continue
		}
		name := c
		if left.HasColumn(name) {
			name = c + suffix
		}
		payloadIdx = append(payloadIdx, i)
		payloadNames = append(payloadNames, name)
	}

	outCols := append(left.Columns(), payloadNames...)
	out := New(left.name, outCols...)

	// bucket right rows by key, preserving order within a key
	buckets := make(map[string][]int, right.NumRows())
	order := make([]string, 0, right.NumRows())
	for r := range right.rows {
		k := rowKey(right.rows[r], rightKey)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], r)
	}

	matchedRight := make(map[string]bool)
	for r := range left.rows {
		k := rowKey(left.rows[r], leftKey)
		matches := buckets[k]
		if len(matches) == 0 {
			row := left.Row(r)
			for range payloadIdx {
				row = append(row, Null())
			}
			out.rows = append(out.rows, row)
			continue
		}
		stats.MatchedRows++
		matchedRight[k] = true
		for _, rr := range matches {
			row := left.Row(r)
			for _, i := range payloadIdx {
				row = append(row, right.rows[rr][i])
			}
			out.rows = append(out.rows, row)
		}
	}

	if outer {
		for _, k := range order {
			if matchedRight[k] {
				continue
			}
			for _, rr := range buckets[k] {
				row := make([]Value, len(outCols))
				for i := range row {
					row[i] = Null()
				}
				// key columns come from the right row
				for i, c := range on {
					row[left.ColumnIndex(c)] = right.rows[rr][rightKey[i]]
				}
				for j, i := range payloadIdx {
					row[len(left.cols)+j] = right.rows[rr][i]
				}
				out.rows = append(out.rows, row)
			}
		}
	}

	stats.ResultRows = out.NumRows()
	return out, stats, nil
}

// AntiJoin removes left rows whose key appears in right.
func AntiJoin(left, right *Table, leftCol, rightCol string) (*Table, int, error) {
	li := left.ColumnIndex(leftCol)
	if li < 0 {
		return nil, 0, fmt.Errorf("anti-join %s: key column %q missing on left", left.name, leftCol)
	}
	ri := right.ColumnIndex(rightCol)
	if ri < 0 {
		return nil, 0, fmt.Errorf("anti-join %s: key column %q missing on right", right.name, rightCol)
	}
	exclude := make(map[string]bool, right.NumRows())
	for r := range right.rows {
		k := strings.TrimSpace(right.rows[r][ri].String())
		if k != "" {
			exclude[k] = true
		}
	}
	removed := 0
	out := left.Filter(func(r int) bool {
		if exclude[strings.TrimSpace(left.rows[r][li].String())] {
			removed++
			return false
		}
		return true
	})
	return out, removed, nil
}
