// Package cohort builds the vintage-analysis dataset: one row per loan per
// cut date carrying the originated amount, the portfolio balances, the aged
// debt components and the month's payments, anchored to an adjusted billing
// date so that loans disbursed in the same month line up.
package cohort

import (
	"time"

	"finrisk/internal/keys"
	"finrisk/internal/table"
	"finrisk/internal/transform"
)

// Output is the cohort dataset plus the quarantined synthetic-key rows and
// the join statistics for the run report.
type Output struct {
	Cohorts  *table.Table
	Excluded *table.Table
	Stats    []table.JoinStats
}

var portfolioCols = []string{"diasatras", "fechafac", "vlrini", "valatras", "saldofac"}
var ageCols = []string{"capital", "interes", "otros", "totalpago"}

// Build assembles the cohort dataset. Base is the unified base; the remaining
// tables are the cleaned feeds and may be nil. Full outer joins keep activity
// on loans the base does not carry, which is the point of a vintage view.
func Build(base, portfolio, ageOfDebt, paymentPlan, collections *table.Table) (*Output, error) {
	out := &Output{}
	key := transform.KeyColumn

	cosechas := base.Select(key, "corte", "valor", "fecha")
	cosechas.SetName("cohorts")

	var err error
	if portfolio != nil && portfolio.NumRows() > 0 {
		right := portfolio.Select(append([]string{key, "corte"}, portfolioCols...)...)
		right.SetName("portfolio")
		cosechas, err = out.outerJoin(cosechas, right, []string{key, "corte"})
		if err != nil {
			return nil, err
		}
	}
	if ageOfDebt != nil && ageOfDebt.NumRows() > 0 {
		right := ageOfDebt.Select(append([]string{key, "corte"}, ageCols...)...)
		right.SetName("age_of_debt")
		cosechas, err = out.outerJoin(cosechas, right, joinableKeys(right, key))
		if err != nil {
			return nil, err
		}
	}
	if paymentPlan != nil && paymentPlan.NumRows() > 0 {
		right := paymentPlan.Select(key, "corte", transform.PaymentAmountColumn)
		right.SetName("payment_plan")
		cosechas, err = out.outerJoin(cosechas, right, []string{key, "corte"})
		if err != nil {
			return nil, err
		}
	}
	if collections != nil && collections.NumRows() > 0 {
		right := collections.Select(key, "corte", transform.CollectedCapitalColumn)
		right.SetName("collections")
		cosechas, err = out.outerJoin(cosechas, right, []string{key, "corte"})
		if err != nil {
			return nil, err
		}
	}

	repairBillingDate(cosechas)
	addAdjustedBillingDate(cosechas)

	// quarantine rows keyed by a missing customer id, or by nothing at all,
	// rather than dropping them silently
	excluded, kept := cosechas.Partition(func(r int) bool {
		k := cosechas.Value(r, key).String()
		return keys.IsSynthetic(k) || keys.IsEmpty(k)
	})
	excluded.SetName("cohorts_excluded")

	out.Cohorts = kept.DropDuplicates()
	out.Cohorts.SetName("cohorts")
	out.Excluded = excluded
	return out, nil
}

func (o *Output) outerJoin(left, right *table.Table, on []string) (*table.Table, error) {
	joined, stats, err := table.OuterJoin(left, right, on, "_"+right.Name())
	if err != nil {
		return nil, err
	}
	o.Stats = append(o.Stats, stats)
	return joined, nil
}

// joinableKeys returns (key, corte) when the right side carries a cut date,
// falling back to the key alone for feeds without one.
func joinableKeys(right *table.Table, key string) []string {
	if right.HasColumn("corte") {
		return []string{key, "corte"}
	}
	return []string{key}
}

// repairBillingDate fills a missing fechafac with the last day of the month
// after the cut date: two months forward, snapped to the first, minus a day.
func repairBillingDate(t *table.Table) {
	if !t.HasColumn("fechafac") || !t.HasColumn("corte") {
		return
	}
	for r := 0; r < t.NumRows(); r++ {
		if _, ok := t.Value(r, "fechafac").AsTime(); ok {
			continue
		}
		corte, ok := t.Value(r, "corte").AsTime()
		if !ok {
			continue
		}
		next := time.Date(corte.Year(), corte.Month(), 1, 0, 0, 0, 0, corte.Location()).
			AddDate(0, 2, 0).AddDate(0, 0, -1)
		t.Set(r, "fechafac", table.Time(next))
	}
}

// addAdjustedBillingDate derives fechafac_ajustada, one month before the
// billing date. Cohort aggregation groups on this column.
func addAdjustedBillingDate(t *table.Table) {
	if !t.HasColumn("fechafac") {
		return
	}
	t.AddColumn("fechafac_ajustada", table.Null())
	for r := 0; r < t.NumRows(); r++ {
		if d, ok := t.Value(r, "fechafac").AsTime(); ok {
			t.Set(r, "fechafac_ajustada", table.Time(d.AddDate(0, -1, 0)))
		}
	}
}
