// Package transform cleans and normalizes each source feed into its canonical
// shape: lower-case columns, coerced types, composite keys and per-feed
// business filters. Each feed has one entry point returning the cleaned table
// plus the warnings the run report collects.
package transform

import (
	"fmt"
	"strings"

	"finrisk/internal/keys"
	"finrisk/internal/table"
)

// KeyColumn is the composite key column every cleaned feed carries.
const KeyColumn = "cedula_numero"

// Result pairs a cleaned table with the non-fatal findings produced while
// cleaning it.
type Result struct {
	Table    *table.Table
	Warnings []string
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// coerceNumeric rewrites a column in place so that every cell is either a
// number or null, counting the cells that would not parse.
func coerceNumeric(t *table.Table, col string) int {
	dropped := 0
	for r := 0; r < t.NumRows(); r++ {
		v := t.Value(r, col)
		if v.IsNull() {
			continue
		}
		if d, ok := v.AsNumber(); ok {
			t.Set(r, col, table.Number(d))
		} else {
			t.Set(r, col, table.Null())
			dropped++
		}
	}
	return dropped
}

// coerceDate rewrites a column in place so that every cell is either a date
// or null, counting the cells that would not parse.
func coerceDate(t *table.Table, col string) int {
	dropped := 0
	for r := 0; r < t.NumRows(); r++ {
		v := t.Value(r, col)
		if v.IsNull() {
			continue
		}
		if d, ok := v.AsTime(); ok {
			t.Set(r, col, table.Time(d))
		} else {
			t.Set(r, col, table.Null())
			dropped++
		}
	}
	return dropped
}

// addKey builds the composite key column from the customer and loan
// identifier columns, recording a warning instead of failing when either is
// missing, matching how an optional feed degrades. Rows whose key is empty on
// both halves are counted into the warning stream.
func addKey(res *Result, customerCol, loanCol string) bool {
	missing, empty := keys.AddComposite(res.Table, customerCol, loanCol, KeyColumn)
	if len(missing) > 0 {
		res.warnf("%s: cannot build %s, missing %s",
			res.Table.Name(), KeyColumn, strings.Join(missing, ", "))
		return false
	}
	if empty > 0 {
		res.warnf("%s: %d rows with an empty %s", res.Table.Name(), empty, KeyColumn)
	}
	return true
}

// filterPositive keeps rows whose named column is a number greater than zero.
func filterPositive(t *table.Table, col string) (*table.Table, int) {
	before := t.NumRows()
	out := t.Filter(func(r int) bool {
		d, ok := t.Value(r, col).AsNumber()
		return ok && d.IsPositive()
	})
	return out, before - out.NumRows()
}
