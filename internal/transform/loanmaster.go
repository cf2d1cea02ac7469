package transform

import (
	"math/rand"
	"strings"

	"finrisk/internal/table"
)

// disbursementColumn holds "DF-<loan number>" in the raw extract. Splitting
// it yields the flag that separates disbursed loans from everything else and
// the loan number the composite key needs.
const disbursementColumn = "desembolso"

var maritalCollapse = map[string]string{
	"Divorciado": "Soltero",
	"Separado":   "Soltero",
	"Viudo":      "Soltero",
	".":          "Soltero",
}

// educationCollapse folds the raw schooling labels, including the mojibake
// variants older extracts carry, into two published categories.
var educationCollapse = map[string]string{
	"Especialización": "Educacion superior",
	"Especializaci¾n": "Educacion superior",
	"Maestría":        "Educacion superior",
	"MaestrÝa":        "Educacion superior",
	"Postdoctorado":   "Educacion superior",
	"Universitario":   "Educacion superior",
	"Doctorado":       "Educacion superior",
	"Técnico":         "Tecnico o Tecnologo",
	"TÚcnico":         "Tecnico o Tecnologo",
	"Tecnólogo":       "Tecnico o Tecnologo",
	"Tecn¾logo":       "Tecnico o Tecnologo",
}

// employment column pairs merged into one published column each
var employmentMerges = []struct {
	a, b, out string
}{
	{"ocupacion", "indpactivi", "act_lab"},
	{"lbempresa", "indprzsoci", "empresa"},
	{"cargo", "indpnombre", "cargos"},
}

var loanMasterDrops = []string{
	"ocupacion", "indpactivi", "lbempresa", "indprzsoci", "cargo", "indpnombre",
	"clase", "tipo", "estado", "df", "pagare", "apellidos", "nombres",
	"telefono1", "movil", "direccion", "codbarrio", "barrio", "fs0nota",
	"fs1email", "desembolso",
}

// LoanMaster cleans the customer/loan master extract: splits the disbursement
// flag and keeps disbursed rows, repairs demographic outliers, merges the
// employment columns, collapses the marital and education categories, prunes
// contact columns and renames the city pair. The rng drives the outlier
// repair; nil disables it.
func LoanMaster(t *table.Table, extraDrops []string, rng *rand.Rand) *Result {
	res := &Result{Table: t}
	t.LowercaseColumns()

	splitDisbursement(res)

	if rng != nil {
		for col, n := range RepairOutliers(t, rng) {
			res.warnf("%s: repaired %d outlier values in %s", t.Name(), n, col)
		}
	}

	for _, m := range employmentMerges {
		mergeColumns(t, m.a, m.b, m.out)
	}

	replaceCategories(t, "fs1estcvil", maritalCollapse)
	replaceCategories(t, "nvescolar", educationCollapse)

	t.DropColumns(loanMasterDrops...)
	t.DropColumns(extraDrops...)

	t.RenameAll(map[string]string{
		"ciudad":    "nomciudad",
		"codciudad": "ciudad",
	})

	coerceNumeric(t, "valor")
	addKey(res, "cedula", "numero")
	return res
}

// splitDisbursement splits "DF-123456" on the first dash into a flag and the
// loan number, then keeps only rows flagged DF. Rows without the flag are
// not disbursed loans and never join anything downstream.
func splitDisbursement(res *Result) {
	t := res.Table
	col := t.ResolveColumn(disbursementColumn)
	if col == "" {
		res.warnf("%s: column %q not found, disbursement filter skipped", t.Name(), disbursementColumn)
		return
	}
	if !t.HasColumn("df") {
		t.AddColumn("df", table.Null())
	}
	if !t.HasColumn("numero") {
		t.AddColumn("numero", table.Null())
	}
	for r := 0; r < t.NumRows(); r++ {
		raw := strings.TrimSpace(t.Value(r, col).String())
		flag, num, found := strings.Cut(raw, "-")
		t.Set(r, "df", table.String(flag))
		if found {
			t.Set(r, "numero", table.String(num))
		}
	}
	before := t.NumRows()
	kept := t.Filter(func(r int) bool { return t.Value(r, "df").String() == "DF" })
	if dropped := before - kept.NumRows(); dropped > 0 {
		res.warnf("%s: dropped %d rows without DF disbursement flag", t.Name(), dropped)
	}
	*res.Table = *kept
}

func mergeColumns(t *table.Table, a, b, out string) {
	ca, cb := t.ResolveColumn(a), t.ResolveColumn(b)
	if ca == "" && cb == "" {
		return
	}
	t.AddColumn(out, table.Null())
	for r := 0; r < t.NumRows(); r++ {
		var parts []string
		if ca != "" {
			if s := strings.TrimSpace(t.Value(r, ca).String()); s != "" {
				parts = append(parts, s)
			}
		}
		if cb != "" {
			if s := strings.TrimSpace(t.Value(r, cb).String()); s != "" {
				parts = append(parts, s)
			}
		}
		t.Set(r, out, table.String(strings.Join(parts, " ")))
	}
}

func replaceCategories(t *table.Table, col string, repl map[string]string) {
	c := t.ResolveColumn(col)
	if c == "" {
		return
	}
	for r := 0; r < t.NumRows(); r++ {
		if to, ok := repl[t.Value(r, c).String()]; ok {
			t.Set(r, c, table.String(to))
		}
	}
}
