package transform

import (
	"finrisk/internal/keys"
	"finrisk/internal/table"
)

// PaymentAmountColumn is the canonical name of the aggregated payment amount.
const PaymentAmountColumn = "abono1"

// PaymentPlan cleans the payment-plan extract: maps the raw ledger columns to
// the canonical set, keeps positive payments, sums them per (key, corte) and
// publishes the total as abono1. Keys arriving in the legacy underscore form
// are rewritten to the canonical separator.
func PaymentPlan(t *table.Table) *Result {
	res := &Result{Table: t}
	t.LowercaseColumns()

	t.RenameAll(map[string]string{
		"nit":        "cedula",
		"mcnnumcru2": "numero",
		"mcnfecha":   "corte",
	})
	if !t.HasColumn("cedula") {
		if c := t.ResolveColumn("identificacion"); c != "" {
			t.Rename(c, "cedula")
		}
	}
	if !t.HasColumn("corte") {
		if c := t.ResolveColumn("fecha"); c != "" {
			t.Rename(c, "corte")
		}
	}
	if !t.HasColumn("abono") {
		if c := t.ResolveColumn("valor abono"); c != "" {
			t.Rename(c, "abono")
		}
	}

	if c := t.ResolveColumn("corte"); c != "" {
		if n := coerceDate(t, c); n > 0 {
			res.warnf("%s: %d rows with unparseable corte", t.Name(), n)
		}
	}
	if c := t.ResolveColumn("abono"); c != "" {
		if n := coerceNumeric(t, c); n > 0 {
			res.warnf("%s: %d rows with non-numeric abono", t.Name(), n)
		}
	} else {
		res.warnf("%s: column abono not found", t.Name())
		return res
	}

	if !addKey(res, "cedula", "numero") {
		return res
	}
	rekeyColumn(t, KeyColumn)

	before := t.NumRows()
	filtered, dropped := filterPositive(t, "abono")
	if dropped > 0 {
		res.warnf("%s: dropped %d rows with non-positive abono (%d remain)", t.Name(), dropped, before-dropped)
	}
	*res.Table = *filtered

	if t.HasColumn("corte") {
		summed := table.GroupSum(t, []string{KeyColumn, "corte"}, "abono", PaymentAmountColumn)
		*res.Table = *summed
	}
	return res
}

// rekeyColumn rewrites legacy underscore keys in place.
func rekeyColumn(t *table.Table, col string) {
	for r := 0; r < t.NumRows(); r++ {
		v := t.Value(r, col)
		if v.IsNull() {
			continue
		}
		if rk := keys.Rekey(v.String()); rk != v.String() {
			t.Set(r, col, table.String(rk))
		}
	}
}
