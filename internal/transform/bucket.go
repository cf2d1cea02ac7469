package transform

import (
	"github.com/shopspring/decimal"

	"finrisk/internal/table"
)

// MoraColumn is the delinquency bucket column derived from days past due.
const MoraColumn = "mora"

// DaysPastDueColumn is the source column the bucket derives from.
const DaysPastDueColumn = "diasatras"

var bucketEdges = []struct {
	upper int64 // inclusive
	label string
}{
	{0, "A1"},
	{30, "A2"},
	{60, "B1"},
	{90, "B2"},
	{120, "C1"},
	{150, "C2"},
	{180, "D1"},
	{210, "D2"},
}

// BucketLabel classifies days past due into the ordered delinquency scale
// A1 < A2 < B1 < B2 < C1 < C2 < D1 < D2 < EE. A1 is exactly zero, each bucket
// above covers a 30-day window up to 210 days, EE is everything beyond.
// Negative values have no bucket and report false.
func BucketLabel(days decimal.Decimal) (string, bool) {
	if days.IsNegative() {
		return "", false
	}
	for _, e := range bucketEdges {
		if days.LessThanOrEqual(decimal.NewFromInt(e.upper)) {
			return e.label, true
		}
	}
	return "EE", true
}

// AddMora coerces the days-past-due column and derives the bucket column from
// it. Rows whose days value is missing, non-numeric or negative get a null
// bucket; the count of such rows is returned for the run report.
func AddMora(t *table.Table) int {
	dc := t.ResolveColumn(DaysPastDueColumn)
	if dc == "" {
		return 0
	}
	coerceNumeric(t, dc)

	if !t.HasColumn(MoraColumn) {
		t.AddColumn(MoraColumn, table.Null())
	}
	unclassified := 0
	for r := 0; r < t.NumRows(); r++ {
		d, ok := t.Value(r, dc).AsNumber()
		if !ok {
			t.Set(r, MoraColumn, table.Null())
			unclassified++
			continue
		}
		label, ok := BucketLabel(d)
		if !ok {
			t.Set(r, MoraColumn, table.Null())
			unclassified++
			continue
		}
		t.Set(r, MoraColumn, table.String(label))
	}
	return unclassified
}
