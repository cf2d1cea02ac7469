package transform

import (
	"finrisk/internal/table"
)

// creditLineColumn carries the product line label in the age-of-debt extract.
const creditLineColumn = "linea"

// AgeOfDebt cleans the age-of-debt extract: builds the composite key from the
// cc_nit/numero pair and keeps only the configured credit lines. An empty
// allow list keeps everything.
func AgeOfDebt(t *table.Table, creditLines []string) *Result {
	res := &Result{Table: t}
	t.LowercaseColumns()

	addKey(res, "cc_nit", "numero")

	for _, col := range []string{"capital", "interes", "otros", "totalpago"} {
		if c := t.ResolveColumn(col); c != "" {
			coerceNumeric(t, c)
		}
	}

	if len(creditLines) > 0 {
		col := t.ResolveColumn(creditLineColumn)
		if col == "" {
			res.warnf("%s: column %q not found, credit line filter skipped", t.Name(), creditLineColumn)
			return res
		}
		allow := make(map[string]bool, len(creditLines))
		for _, l := range creditLines {
			allow[l] = true
		}
		before := t.NumRows()
		kept := t.Filter(func(r int) bool { return allow[t.Value(r, col).String()] })
		res.warnf("%s: credit line filter kept %d of %d rows", t.Name(), kept.NumRows(), before)
		*res.Table = *kept
	}
	return res
}
