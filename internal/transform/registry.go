package transform

import (
	"time"

	"finrisk/internal/table"
)

// Registry cleans the disbursement registry extract: renames the raw columns
// to the canonical set, snaps the transaction date to its month end so it
// aligns with the portfolio cut dates, builds the composite key and keeps the
// first record per loan number.
func Registry(t *table.Table) *Result {
	res := &Result{Table: t}
	t.LowercaseColumns()

	t.RenameAll(map[string]string{
		"fecha":   "corte",
		"cc_nit":  "cedula",
		"dsm_num": "numero",
		"vlr_fnz": "valor",
	})

	if c := t.ResolveColumn("corte"); c != "" {
		if n := coerceDate(t, c); n > 0 {
			res.warnf("%s: %d rows with unparseable corte", t.Name(), n)
		}
		for r := 0; r < t.NumRows(); r++ {
			if d, ok := t.Value(r, c).AsTime(); ok {
				t.Set(r, c, table.Time(endOfMonth(d)))
			}
		}
	}
	if c := t.ResolveColumn("valor"); c != "" {
		if n := coerceNumeric(t, c); n > 0 {
			res.warnf("%s: %d rows with non-numeric valor", t.Name(), n)
		}
	}

	addKey(res, "cedula", "numero")

	if c := t.ResolveColumn("numero"); c != "" {
		before := t.NumRows()
		deduped := t.DropDuplicatesBy(c)
		if dropped := before - deduped.NumRows(); dropped > 0 {
			res.warnf("%s: dropped %d duplicate loan numbers", t.Name(), dropped)
		}
		*res.Table = *deduped
	}
	return res
}

func endOfMonth(d time.Time) time.Time {
	firstOfNext := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
