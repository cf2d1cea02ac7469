package transform

import (
	"strings"

	"finrisk/internal/table"
)

// brandColumn carries the business line label in the raw portfolio extract.
const brandColumn = "reg"

// portfolioCanonical are the columns downstream joins and pivots reference by
// exact name; drifted headers ("DIAS ATRASO", "DIASATRASOS") are renamed to
// these before anything else reads them.
var portfolioCanonical = []string{
	"cedula", "numero", "corte", "diasatras", "fechafac", "fechapag",
	"vlrini", "valatras", "saldofac", "valorcuota", "totcuotas",
	"cuotaspag", "cuotaatras",
}

var portfolioDrops = []string{
	"reg", "clase", "tipo", "nombre", "telefono", "ultpago", "fechanov",
	"fechacom", "totfactura", "intepagado", "interespdte", "direccion",
	"barrio", "generar", "cobra", "empresa", "solnum", "mcncuenta",
	"peripago", "vinempres", "soltip", "tiponov", "codnov",
}

// Portfolio cleans the monthly portfolio snapshot: keeps only the configured
// brand, prunes the contact and low-coverage columns, builds the composite
// key, collapses duplicate (key, corte) rows and derives the delinquency
// bucket.
func Portfolio(t *table.Table, brand string, extraDrops []string) (*Result, table.CollapseStats) {
	res := &Result{Table: t}
	t.LowercaseColumns()
	if missing := t.ResolveAndRename(portfolioCanonical...); len(missing) > 0 {
		res.warnf("%s: columns not found after fuzzy matching: %s",
			t.Name(), strings.Join(missing, ", "))
	}

	if brand != "" {
		col := t.ResolveColumn(brandColumn)
		if col == "" {
			res.warnf("%s: column %q not found, brand filter skipped", t.Name(), brandColumn)
		} else {
			before := t.NumRows()
			kept := t.Filter(func(r int) bool { return t.Value(r, col).String() == brand })
			res.warnf("%s: brand filter %q kept %d of %d rows", t.Name(), brand, kept.NumRows(), before)
			*res.Table = *kept
		}
	}

	t.DropColumns(portfolioDrops...)
	t.DropColumns(extraDrops...)

	for _, col := range []string{"vlrini", "valatras", "saldofac", "valorcuota", "totcuotas", "cuotaspag", "cuotaatras"} {
		if c := t.ResolveColumn(col); c != "" {
			coerceNumeric(t, c)
		}
	}
	for _, col := range []string{"fechafac", "fechapag"} {
		if c := t.ResolveColumn(col); c != "" {
			coerceDate(t, c)
		}
	}

	addKey(res, "cedula", "numero")

	var stats table.CollapseStats
	if t.HasColumn(KeyColumn) && t.HasColumn("corte") {
		collapsed, cs := table.CollapseDuplicates(t, []string{KeyColumn, "corte"})
		stats = cs
		if cs.Groups > 0 {
			res.warnf("%s: collapsed %d duplicate rows into %d groups", t.Name(), cs.RowsIn, cs.Groups)
		}
		*res.Table = *collapsed
	}

	if n := AddMora(t); n > 0 {
		res.warnf("%s: %d rows without a delinquency bucket", t.Name(), n)
	}
	return res, stats
}
