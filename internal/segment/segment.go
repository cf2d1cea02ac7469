// Package segment builds the customer segmentation dataset: the unified base
// enriched with each customer's earliest portfolio snapshot, a computed age
// and the banded demographic ranges the CRM consumes.
package segment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finrisk/internal/table"
	"finrisk/internal/transform"
)

// earliestPortfolioCols are the snapshot columns carried over from each
// customer's oldest cut date.
var earliestPortfolioCols = []string{
	"fechapag", "valatras", "saldofac", "cuotaatras",
	"valorcuota", "totcuotas", "cuotaspag",
}

// publishedColumns is the fixed CRM export layout. Columns missing from the
// assembled table are skipped, never invented.
var publishedColumns = []string{
	"numero", "analista", "fecha", "ciudad", "nomciudad", "fs0vende", "vennombre",
	"ccosto", "cconombre", "fs0montoap", "cuotas", "valor_tota", "fs1sexo",
	"fs1nacfec", "fs1estcvil", "npercargo", "vvdatipo", "vvdaaval", "ingresos",
	"gastos", "nvescolar", "corte2", "act_lab", "empresa", "cargos", "cedula",
	"corte", "cedula_numero", "valor", "fechapag", "valatras", "saldofac",
	"cuotaatras", "valorcuota", "totcuotas", "cuotaspag", "rango_ingresos",
	"rango_avaluo", "rango_monto", "rango_gastos", "edad", "rango_edad",
	"rango_cuotas",
}

// rangeSpec bands one numeric column into labeled windows starting at From
// with the given Width. The upper bound tracks the observed maximum.
type rangeSpec struct {
	source   []string // candidate source columns, first resolvable wins
	out      string
	from     int64
	width    int64
	thousand bool // format bounds with thousands separators
}

var rangeSpecs = []rangeSpec{
	{source: []string{"ingresos"}, out: "rango_ingresos", from: 0, width: 1_000_000, thousand: true},
	{source: []string{"vvdaaval", "avaluo"}, out: "rango_avaluo", from: 0, width: 50_000_000, thousand: true},
	{source: []string{"valor_tota", "valor", "monto"}, out: "rango_monto", from: 0, width: 1_000_000, thousand: true},
	{source: []string{"gastos"}, out: "rango_gastos", from: 0, width: 500_000, thousand: true},
	{source: []string{"edad"}, out: "rango_edad", from: 18, width: 5},
	{source: []string{"totcuotas", "cuotas"}, out: "rango_cuotas", from: 6, width: 3},
}

// Output is the segmentation dataset with its join statistics.
type Output struct {
	Segments *table.Table
	Stats    []table.JoinStats
	Warnings []string
}

// Build assembles the segmentation dataset from the unified base and the
// cleaned portfolio. Now anchors the age computation; injecting it keeps
// runs reproducible in tests.
func Build(base, portfolio *table.Table, now time.Time) (*Output, error) {
	out := &Output{}
	key := transform.KeyColumn

	crm := base.Clone()
	crm.SetName("segments")

	if portfolio != nil && portfolio.NumRows() > 0 && portfolio.HasColumn(key) {
		first := earliestPerCustomer(portfolio, key)
		joined, stats, err := table.LeftJoin(crm, first, []string{key}, "_ac")
		if err != nil {
			return nil, err
		}
		out.Stats = append(out.Stats, stats)
		crm = joined
	}

	addAge(crm, now)

	for _, spec := range rangeSpecs {
		if warn := addRange(crm, spec); warn != "" {
			out.Warnings = append(out.Warnings, warn)
		}
	}

	if !crm.HasColumn("corte2") && crm.HasColumn("corte") {
		crm.AddColumn("corte2", table.Null())
		for r := 0; r < crm.NumRows(); r++ {
			crm.Set(r, "corte2", crm.Value(r, "corte"))
		}
	}

	published := crm.Select(publishedColumns...).DropDuplicates()
	published.SetName("segments")
	out.Segments = published
	return out, nil
}

// earliestPerCustomer keeps each customer's snapshot at their oldest cut
// date, then drops the cut date itself; it only ordered the selection.
func earliestPerCustomer(portfolio *table.Table, key string) *table.Table {
	cols := append([]string{key, "corte"}, earliestPortfolioCols...)
	first := portfolio.Select(cols...)
	first.SetName("portfolio_first")
	first.SortBy("corte")
	first = first.DropDuplicatesBy(key)
	first.DropColumns("corte")
	return first
}

// addAge derives whole years from the birth date the way the analysts
// compute it: elapsed weeks divided by 52.25, floored.
func addAge(t *table.Table, now time.Time) {
	col := t.ResolveColumn("fs1nacfec")
	if col == "" {
		return
	}
	t.AddColumn("edad", table.Null())
	for r := 0; r < t.NumRows(); r++ {
		born, ok := t.Value(r, col).AsTime()
		if !ok {
			continue
		}
		days := now.Sub(born).Hours() / 24
		years := int64((days / 7) / 52.25)
		t.Set(r, "edad", table.Int(years))
	}
}

func addRange(t *table.Table, spec rangeSpec) string {
	var col string
	for _, s := range spec.source {
		if c := t.ResolveColumn(s); c != "" {
			col = c
			break
		}
	}
	if col == "" {
		return fmt.Sprintf("segments: no source column for %s", spec.out)
	}
	t.AddColumn(spec.out, table.Null())
	for r := 0; r < t.NumRows(); r++ {
		d, ok := t.Value(r, col).AsNumber()
		if !ok {
			continue
		}
		if label, ok := bandLabel(d, spec); ok {
			t.Set(r, spec.out, table.String(label))
		}
	}
	return ""
}

// bandLabel places a value in its [lower, upper] window. Values below the
// series start have no band, matching the open lower edge of the banding.
func bandLabel(d decimal.Decimal, spec rangeSpec) (string, bool) {
	from := decimal.NewFromInt(spec.from)
	width := decimal.NewFromInt(spec.width)
	if d.LessThan(from) {
		return "", false
	}
	offset := d.Sub(from).Div(width).Floor()
	lower := from.Add(offset.Mul(width))
	// value exactly on an upper edge belongs to the window below
	if d.Equal(lower) && !d.Equal(from) {
		lower = lower.Sub(width)
	}
	upper := lower.Add(width)
	if spec.thousand {
		return fmt.Sprintf("%s - %s", groupDigits(lower), groupDigits(upper)), true
	}
	return fmt.Sprintf("%s - %s", lower.String(), upper.String()), true
}

// groupDigits renders an integral decimal with comma thousands separators.
func groupDigits(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
