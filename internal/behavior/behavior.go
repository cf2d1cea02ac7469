// Package behavior builds the payment-behavior matrix: one row per loan, one
// column per metric per cut date, with the delinquency series gap-filled from
// the collections rating so a scorecard can read each loan's history left to
// right.
package behavior

import (
	"sort"
	"strings"

	"finrisk/internal/table"
	"finrisk/internal/transform"
)

// pivotMetrics are the portfolio columns spread across cut dates, in the
// published group order.
var pivotMetrics = []string{
	"diasatras", "vlrini", "fechafac", "valatras", "saldofac", "valorcuota",
	transform.MoraColumn,
}

// gapSentinel temporarily marks cells before a loan's first observation so
// the rating backfill cannot touch them.
const gapSentinel = "."

// Output is the behavior matrix with its join statistics.
type Output struct {
	Matrix   *table.Table
	Stats    []table.JoinStats
	Warnings []string
}

// Build assembles the behavior matrix from the cleaned portfolio, the
// unified base (for the disbursed amount) and the rating lookup (may be nil).
func Build(portfolio, base, categories *table.Table) (*Output, error) {
	out := &Output{}
	key := transform.KeyColumn

	long := portfolio.Select(append([]string{key, "corte"}, pivotMetrics...)...)
	long.SetName("behavior")
	if n := transform.AddMora(long); n > 0 {
		out.Warnings = append(out.Warnings, "behavior: rows without a delinquency bucket")
	}

	metrics := make([]string, 0, len(pivotMetrics))
	for _, m := range pivotMetrics {
		if long.HasColumn(m) {
			metrics = append(metrics, m)
		}
	}
	wide, err := table.Pivot{
		Index:   key,
		Columns: "corte",
		Values:  metrics,
	}.Apply(long)
	if err != nil {
		return nil, err
	}

	// disbursed amount, one per loan
	if base != nil && base.HasColumn("valor") {
		val := base.Select(key, "valor").DropDuplicatesBy(key)
		val.SetName("disbursed")
		joined, stats, err := table.LeftJoin(wide, val, []string{key}, "_fnz")
		if err != nil {
			return nil, err
		}
		out.Stats = append(out.Stats, stats)
		wide = joined
	}

	// collections rating from the categories lookup
	if categories != nil && categories.NumRows() > 0 {
		if warn := joinRating(out, &wide, categories, key); warn != "" {
			out.Warnings = append(out.Warnings, warn)
		}
	}

	fillDelinquencyGaps(wide)

	out.Matrix = reorder(wide, key)
	out.Matrix.SetName("behavior")
	return out, nil
}

func joinRating(out *Output, wide **table.Table, categories *table.Table, key string) string {
	cat := categories.Clone()
	cat.LowercaseColumns()
	if !cat.HasColumn(key) {
		return "behavior: categories lookup has no " + key
	}
	ratingCol := cat.ResolveColumn("calificacion")
	if ratingCol == "" {
		return "behavior: categories lookup has no rating column"
	}
	cat = cat.Select(key, ratingCol)
	cat.Rename(ratingCol, "calificacion")
	cat = cat.DropDuplicatesBy(key)
	cat.SetName("categories")

	joined, stats, err := table.LeftJoin(*wide, cat, []string{key}, "_cat")
	if err != nil {
		return "behavior: " + err.Error()
	}
	out.Stats = append(out.Stats, stats)
	*wide = joined
	return ""
}

// fillDelinquencyGaps walks each loan's chronologically ordered bucket
// columns: cells before the first observation stay null, later gaps take the
// loan's rating. The sentinel protects the leading run while the backfill
// writes the rating, then becomes null again.
func fillDelinquencyGaps(t *table.Table) {
	moraCols := columnsWithPrefix(t, transform.MoraColumn+"_")
	if len(moraCols) == 0 {
		return
	}
	hasRating := t.HasColumn("calificacion")

	for r := 0; r < t.NumRows(); r++ {
		firstSeen := -1
		for i, c := range moraCols {
			if !t.Value(r, c).IsNull() {
				firstSeen = i
				break
			}
		}
		if firstSeen > 0 {
			for _, c := range moraCols[:firstSeen] {
				t.Set(r, c, table.String(gapSentinel))
			}
		}
		if hasRating {
			rating := t.Value(r, "calificacion")
			if !rating.IsNull() && strings.TrimSpace(rating.String()) != "" {
				for _, c := range moraCols {
					if t.Value(r, c).IsNull() {
						t.Set(r, c, table.String(rating.String()))
					}
				}
			}
		}
		for _, c := range moraCols {
			if t.Value(r, c).String() == gapSentinel {
				t.Set(r, c, table.Null())
			}
		}
	}
}

// reorder lays the matrix out for publication: the key, then each metric's
// column group sorted by date, then the amount and rating.
func reorder(t *table.Table, key string) *table.Table {
	cols := []string{key}
	for _, m := range pivotMetrics {
		cols = append(cols, columnsWithPrefix(t, m+"_")...)
	}
	for _, trailer := range []string{"valor", "calificacion"} {
		if t.HasColumn(trailer) {
			cols = append(cols, trailer)
		}
	}
	return t.Select(cols...)
}

func columnsWithPrefix(t *table.Table, prefix string) []string {
	var out []string
	for _, c := range t.Columns() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
