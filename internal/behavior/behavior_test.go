package behavior

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrisk/internal/table"
	"finrisk/internal/transform"
)

func corte(y int, m time.Month, d int) table.Value {
	return table.Time(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func portfolioLong(rows ...[4]string) *table.Table {
	tb := table.New("portfolio", transform.KeyColumn, "corte", "diasatras", "saldofac")
	for _, r := range rows {
		vals := []table.Value{table.String(r[0])}
		d, _ := time.Parse("2006-01-02", r[1])
		vals = append(vals, table.Time(d))
		for _, s := range r[2:] {
			if s == "" {
				vals = append(vals, table.Null())
			} else {
				vals = append(vals, table.String(s))
			}
		}
		tb.MustAppendRow(vals...)
	}
	return tb
}

func TestBuildPivotsPerCutDate(t *testing.T) {
	portfolio := portfolioLong(
		[4]string{"123-4", "2024-01-31", "0", "500"},
		[4]string{"123-4", "2024-02-29", "45", "400"},
		[4]string{"777-9", "2024-01-31", "95", "900"},
	)

	out, err := Build(portfolio, nil, nil)
	require.NoError(t, err)
	m := out.Matrix

	require.Equal(t, 2, m.NumRows())
	assert.Equal(t, "123-4", m.Value(0, transform.KeyColumn).String())
	assert.Equal(t, "0", m.Value(0, "diasatras_2024-01-31").String())
	assert.Equal(t, "45", m.Value(0, "diasatras_2024-02-29").String())
	assert.Equal(t, "A1", m.Value(0, "mora_2024-01-31").String())
	assert.Equal(t, "B1", m.Value(0, "mora_2024-02-29").String())
	assert.Equal(t, "C1", m.Value(1, "mora_2024-01-31").String())
	// 777-9 has no February observation
	assert.True(t, m.Value(1, "mora_2024-02-29").IsNull())
}

func TestBuildKeepsDriftedDelinquencyHeader(t *testing.T) {
	raw := table.New("portfolio", "CEDULA", "NUMERO", "CORTE", "DIAS ATRASO", "SALDOFAC")
	raw.MustAppendRow(table.String("123"), table.String("4"),
		table.String("2024-01-31"), table.String("45"), table.String("500"))

	res, _ := transform.Portfolio(raw, "", nil)
	out, err := Build(res.Table, nil, nil)
	require.NoError(t, err)
	m := out.Matrix

	// the renamed days-past-due column pivots under its canonical name
	require.True(t, m.HasColumn("diasatras_2024-01-31"))
	assert.Equal(t, "45", m.Value(0, "diasatras_2024-01-31").String())
	assert.Equal(t, "B1", m.Value(0, "mora_2024-01-31").String())
}

func TestBuildJoinsDisbursedAmount(t *testing.T) {
	portfolio := portfolioLong([4]string{"123-4", "2024-01-31", "0", "500"})
	base := table.New("base", transform.KeyColumn, "valor")
	base.MustAppendRow(table.String("123-4"), table.Int(1_000_000))
	base.MustAppendRow(table.String("123-4"), table.Int(1_000_000))

	out, err := Build(portfolio, base, nil)
	require.NoError(t, err)
	m := out.Matrix

	require.Equal(t, 1, m.NumRows())
	// the duplicate base row must not fan the matrix out
	assert.Equal(t, "1000000", m.Value(0, "valor").String())
	cols := m.Columns()
	assert.Equal(t, "valor", cols[len(cols)-1])
}

func TestGapFillBackfillsFromRating(t *testing.T) {
	// five cut dates: the loan appears at the third and the fifth
	portfolio := portfolioLong(
		[4]string{"123-4", "2024-03-31", "45", "300"},
		[4]string{"123-4", "2024-05-31", "10", "100"},
		[4]string{"999-1", "2024-01-31", "0", "50"},
		[4]string{"999-1", "2024-02-29", "0", "50"},
		[4]string{"999-1", "2024-04-30", "0", "50"},
	)
	categories := table.New("categories", "CEDULA_NUMERO", "CALIFICACION")
	categories.MustAppendRow(table.String("123-4"), table.String("C1"))

	out, err := Build(portfolio, nil, categories)
	require.NoError(t, err)
	m := out.Matrix

	series := func(row int) []string {
		var s []string
		for _, c := range []string{
			"mora_2024-01-31", "mora_2024-02-29", "mora_2024-03-31",
			"mora_2024-04-30", "mora_2024-05-31",
		} {
			s = append(s, m.Value(row, c).String())
		}
		return s
	}

	// months before the first observation stay null; the later gap takes the
	// rating
	assert.Equal(t, []string{"", "", "B1", "C1", "A2"}, series(0))
	// no rating for 999-1, its gaps stay null
	assert.Equal(t, []string{"A1", "A1", "", "A1", ""}, series(1))
}

func TestGapFillWithoutRatingLeavesNulls(t *testing.T) {
	portfolio := portfolioLong(
		[4]string{"123-4", "2024-01-31", "0", "100"},
		[4]string{"123-4", "2024-03-31", "0", "100"},
		[4]string{"777-9", "2024-02-29", "0", "100"},
	)

	out, err := Build(portfolio, nil, nil)
	require.NoError(t, err)
	m := out.Matrix

	assert.Equal(t, "A1", m.Value(0, "mora_2024-01-31").String())
	assert.True(t, m.Value(0, "mora_2024-02-29").IsNull())
	assert.True(t, m.Value(1, "mora_2024-01-31").IsNull())
}

func TestMatrixColumnOrder(t *testing.T) {
	portfolio := portfolioLong(
		[4]string{"123-4", "2024-02-29", "0", "100"},
		[4]string{"123-4", "2024-01-31", "0", "100"},
	)
	base := table.New("base", transform.KeyColumn, "valor")
	base.MustAppendRow(table.String("123-4"), table.Int(5))
	categories := table.New("categories", "cedula_numero", "calificacion")
	categories.MustAppendRow(table.String("123-4"), table.String("A2"))

	out, err := Build(portfolio, base, categories)
	require.NoError(t, err)
	cols := out.Matrix.Columns()

	assert.Equal(t, transform.KeyColumn, cols[0])
	assert.Equal(t, "calificacion", cols[len(cols)-1])
	assert.Equal(t, "valor", cols[len(cols)-2])

	// each metric's columns are contiguous and chronological
	var lastMetric string
	seen := map[string]bool{}
	for _, c := range cols[1 : len(cols)-2] {
		i := strings.LastIndex(c, "_")
		require.Greater(t, i, 0, c)
		metric := c[:i]
		if metric != lastMetric {
			assert.False(t, seen[metric], "metric %s split across groups", metric)
			seen[metric] = true
			lastMetric = metric
		}
	}
}
