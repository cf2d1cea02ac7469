package transform

import (
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finrisk/internal/table"
)

// OutlierRange is a business-valid window for a demographic column. Cells
// outside the window (after IQR tightening) and nulls are replaced with a
// draw from the window, so that the published dataset carries no impossible
// incomes or birth dates.
type OutlierRange struct {
	Column string
	Min    float64
	Max    float64
}

// demographicRanges are the windows for the loan-master demographic columns.
var demographicRanges = []OutlierRange{
	{Column: "gastos", Min: 100_000, Max: 1_000_000},
	{Column: "ingresos", Min: 1_300_000, Max: 3_000_000},
	{Column: "vvdaaval", Min: 50_000_000, Max: 300_000_000},
}

// birthDateColumn gets the same treatment over a date window.
const birthDateColumn = "fs1nacfec"

var (
	birthDateMin = time.Date(1944, 1, 1, 0, 0, 0, 0, time.UTC)
	birthDateMax = time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)
)

// RepairOutliers applies the IQR outlier repair to the demographic columns of
// the cleaned loan master. The rng is injected so that a seeded run is
// reproducible. Returns per-column repair counts.
func RepairOutliers(t *table.Table, rng *rand.Rand) map[string]int {
	repaired := make(map[string]int)
	for _, or := range demographicRanges {
		if n := repairNumeric(t, or, rng); n > 0 {
			repaired[or.Column] = n
		}
	}
	if n := repairBirthDate(t, rng); n > 0 {
		repaired[birthDateColumn] = n
	}
	return repaired
}

func repairNumeric(t *table.Table, or OutlierRange, rng *rand.Rand) int {
	col := t.ResolveColumn(or.Column)
	if col == "" {
		return 0
	}
	coerceNumeric(t, col)

	var vals []float64
	for r := 0; r < t.NumRows(); r++ {
		if d, ok := t.Value(r, col).AsNumber(); ok {
			f, _ := d.Float64()
			vals = append(vals, f)
		}
	}
	lo, hi := iqrFence(vals)
	// tighten to the business window
	if lo < or.Min {
		lo = or.Min
	}
	if hi > or.Max {
		hi = or.Max
	}

	repaired := 0
	for r := 0; r < t.NumRows(); r++ {
		d, ok := t.Value(r, col).AsNumber()
		if ok {
			f, _ := d.Float64()
			if f >= lo && f <= hi {
				continue
			}
		}
		draw := lo + rng.Float64()*(hi-lo)
		t.Set(r, col, table.Number(decimal.NewFromFloat(draw).Round(0)))
		repaired++
	}
	return repaired
}

func repairBirthDate(t *table.Table, rng *rand.Rand) int {
	col := t.ResolveColumn(birthDateColumn)
	if col == "" {
		return 0
	}
	coerceDate(t, col)

	var vals []float64
	for r := 0; r < t.NumRows(); r++ {
		if d, ok := t.Value(r, col).AsTime(); ok {
			vals = append(vals, float64(d.Unix()))
		}
	}
	lo, hi := iqrFence(vals)
	if min := float64(birthDateMin.Unix()); lo < min {
		lo = min
	}
	if max := float64(birthDateMax.Unix()); hi > max {
		hi = max
	}

	repaired := 0
	for r := 0; r < t.NumRows(); r++ {
		d, ok := t.Value(r, col).AsTime()
		if ok {
			u := float64(d.Unix())
			if u >= lo && u <= hi {
				continue
			}
		}
		draw := lo + rng.Float64()*(hi-lo)
		day := time.Unix(int64(draw), 0).UTC().Truncate(24 * time.Hour)
		t.Set(r, col, table.Time(day))
		repaired++
	}
	return repaired
}

// iqrFence returns the [Q1-1.5*IQR, Q3+1.5*IQR] fence over the sample. An
// empty sample yields a degenerate fence that classifies everything as an
// outlier, which the caller's business-window tightening then bounds.
func iqrFence(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// quantile uses linear interpolation between closest ranks, matching the
// default of the tools the analysts validated the ranges against.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	frac := pos - float64(i)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
