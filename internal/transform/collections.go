package transform

import (
	"strings"

	"finrisk/internal/table"
)

// CollectedCapitalColumn is the canonical name of the aggregated collected
// principal.
const CollectedCapitalColumn = "capitalrec"

// Collections cleans the cash-collections extract. The source system renames
// its headers between releases, so the identifier, date and amount columns
// are detected by fragment before the canonical rename. Positive collections
// are summed per (key, corte).
func Collections(t *table.Table) *Result {
	res := &Result{Table: t}
	t.LowercaseColumns()

	renames := map[string]string{}
	if c := findByFragments(t, "cedula", "identificacion", "nit", "vinculado"); c != "" {
		renames[c] = "cedula"
	}
	if c := findByFragments(t, "numero", "obligacion", "ds_numero"); c != "" {
		renames[c] = "numero"
	}
	if c := findByFragments(t, "fecha", "corte", "rc_fecha"); c != "" {
		renames[c] = "corte"
	}
	if c := findByFragments(t, "capitalrec", "capital", "valor"); c != "" {
		renames[c] = CollectedCapitalColumn
	}
	t.RenameAll(renames)

	if c := t.ResolveColumn("corte"); c != "" {
		if n := coerceDate(t, c); n > 0 {
			res.warnf("%s: %d rows with unparseable corte", t.Name(), n)
		}
	}
	if t.HasColumn(CollectedCapitalColumn) {
		if n := coerceNumeric(t, CollectedCapitalColumn); n > 0 {
			res.warnf("%s: %d rows with non-numeric %s", t.Name(), n, CollectedCapitalColumn)
		}
	} else {
		res.warnf("%s: no collected capital column detected", t.Name())
		return res
	}

	if !addKey(res, "cedula", "numero") {
		return res
	}
	rekeyColumn(t, KeyColumn)

	filtered, dropped := filterPositive(t, CollectedCapitalColumn)
	if dropped > 0 {
		res.warnf("%s: dropped %d rows with non-positive %s", t.Name(), dropped, CollectedCapitalColumn)
	}
	*res.Table = *filtered

	if t.HasColumn("corte") {
		summed := table.GroupSum(t, []string{KeyColumn, "corte"}, CollectedCapitalColumn, CollectedCapitalColumn)
		*res.Table = *summed
	}
	return res
}

// findByFragments returns the first column containing any of the fragments,
// trying fragments in priority order.
func findByFragments(t *table.Table, fragments ...string) string {
	for _, f := range fragments {
		for _, c := range t.Columns() {
			if strings.Contains(c, f) {
				return c
			}
		}
	}
	return ""
}
