package loader

import (
	"fmt"

	"finrisk/internal/table"
)

// nullRateThreshold flags columns the extract filled with almost nothing;
// they usually mean a header shifted between revisions.
const nullRateThreshold = 0.95

// duplicateRateThreshold flags feeds where whole rows repeat, which the
// collapse step will absorb but the operator should know about.
const duplicateRateThreshold = 0.01

// Inspect runs the post-load quality checks on a stacked feed and returns
// one finding per problem. An empty slice means the feed looks sane.
func Inspect(t *table.Table) []string {
	var findings []string
	if t == nil {
		return findings
	}
	name := t.Name()

	rows := t.NumRows()
	if rows == 0 {
		return append(findings, fmt.Sprintf("%s: loaded 0 rows", name))
	}

	for c, col := range t.Columns() {
		nulls := 0
		for r := 0; r < rows; r++ {
			if t.At(r, c).IsNull() {
				nulls++
			}
		}
		if rate := float64(nulls) / float64(rows); rate >= nullRateThreshold {
			findings = append(findings, fmt.Sprintf(
				"%s: column %q is %.0f%% null", name, col, rate*100))
		}
	}

	if dups := rows - t.DropDuplicates().NumRows(); dups > 0 {
		if rate := float64(dups) / float64(rows); rate >= duplicateRateThreshold {
			findings = append(findings, fmt.Sprintf(
				"%s: %d duplicate rows (%.1f%%)", name, dups, rate*100))
		}
	}

	if ci := t.ColumnIndex("corte"); ci >= 0 {
		missing := 0
		for r := 0; r < rows; r++ {
			if _, ok := t.At(r, ci).AsTime(); !ok {
				missing++
			}
		}
		if missing > 0 {
			findings = append(findings, fmt.Sprintf(
				"%s: %d rows without a usable corte date", name, missing))
		}
	}
	return findings
}
