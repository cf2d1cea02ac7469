package table

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseDuplicatesSumsNumericKeepsFirstText(t *testing.T) {
	tb := New("portfolio", "k", "corte", "saldofac", "nombre")
	tb.MustAppendRow(String("K1"), String("2024-01-31"), Int(100), String("ana"))
	tb.MustAppendRow(String("K1"), String("2024-01-31"), Int(50), String("otro"))
	tb.MustAppendRow(String("K2"), String("2024-01-31"), Int(30), String("bob"))

	out, stats := CollapseDuplicates(tb, []string{"k", "corte"})
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 2, stats.RowsIn)
	assert.Equal(t, 1, stats.Untouched)

	// duplicated group keeps its first-occurrence position
	assert.Equal(t, "K1", out.Value(0, "k").String())
	assert.Equal(t, "150", out.Value(0, "saldofac").String())
	assert.Equal(t, "ana", out.Value(0, "nombre").String())
	assert.Equal(t, "30", out.Value(1, "saldofac").String())
}

func TestCollapseDuplicatesConservesColumnSum(t *testing.T) {
	tb := New("t", "k", "monto")
	amounts := []int64{10, 20, 30, 40, 50}
	keys := []string{"A", "A", "B", "A", "B"}
	for i := range amounts {
		tb.MustAppendRow(String(keys[i]), Int(amounts[i]))
	}

	out, _ := CollapseDuplicates(tb, []string{"k"})

	sum := func(t2 *Table) decimal.Decimal {
		total := decimal.Zero
		for r := 0; r < t2.NumRows(); r++ {
			if d, ok := t2.Value(r, "monto").AsNumber(); ok {
				total = total.Add(d)
			}
		}
		return total
	}
	assert.True(t, sum(tb).Equal(sum(out)), "collapse must conserve the column total")
	assert.Equal(t, 2, out.NumRows())
}

func TestCollapseDuplicatesCleanInputIsIdentity(t *testing.T) {
	tb := New("t", "k", "v")
	tb.MustAppendRow(String("A"), Int(1))
	tb.MustAppendRow(String("B"), Int(2))

	out, stats := CollapseDuplicates(tb, []string{"k"})
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 0, stats.Groups)
	assert.Equal(t, 2, stats.Untouched)
	assert.Equal(t, "1", out.Value(0, "v").String())
}

func TestCollapseDuplicatesNullPlusNumber(t *testing.T) {
	tb := New("t", "k", "v")
	tb.MustAppendRow(String("A"), Null())
	tb.MustAppendRow(String("A"), Int(5))

	out, _ := CollapseDuplicates(tb, []string{"k"})
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, "5", out.Value(0, "v").String())
}

func TestGroupSum(t *testing.T) {
	tb := New("r05", "k", "corte", "abono")
	tb.MustAppendRow(String("K1"), String("2024-01-31"), Int(10))
	tb.MustAppendRow(String("K1"), String("2024-01-31"), Int(15))
	tb.MustAppendRow(String("K1"), String("2024-02-29"), Int(7))
	tb.MustAppendRow(String("K2"), String("2024-01-31"), String("bad"))

	out := GroupSum(tb, []string{"k", "corte"}, "abono", "abono1")
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, []string{"k", "corte", "abono1"}, out.Columns())
	assert.Equal(t, "25", out.Value(0, "abono1").String())
	assert.Equal(t, "7", out.Value(1, "abono1").String())
	// non-numeric cells contribute zero
	assert.Equal(t, "0", out.Value(2, "abono1").String())
}
