package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRowArity(t *testing.T) {
	tb := New("t", "a", "b")
	require.NoError(t, tb.AppendRow(String("x"), Int(1)))
	assert.Error(t, tb.AppendRow(String("only one")))
	assert.Equal(t, 1, tb.NumRows())
}

func TestLowercaseColumns(t *testing.T) {
	tb := New("t", "CEDULA", " Numero ", "Valor")
	tb.LowercaseColumns()
	assert.Equal(t, []string{"cedula", "numero", "valor"}, tb.Columns())
	assert.True(t, tb.HasColumn("cedula"))
	assert.False(t, tb.HasColumn("CEDULA"))
}

func TestRenameAndDrop(t *testing.T) {
	tb := New("t", "fecha", "cc_nit", "otro")
	tb.MustAppendRow(String("2024-01-15"), String("123"), String("x"))

	assert.True(t, tb.Rename("fecha", "corte"))
	assert.False(t, tb.Rename("missing", "anything"))
	assert.Equal(t, "2024-01-15", tb.Value(0, "corte").String())

	dropped := tb.DropColumns("otro", "not_there")
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"corte", "cc_nit"}, tb.Columns())
	assert.Equal(t, "123", tb.Value(0, "cc_nit").String())
}

func TestSelectKeepsOrderAndSkipsAbsent(t *testing.T) {
	tb := New("t", "a", "b", "c")
	tb.MustAppendRow(Int(1), Int(2), Int(3))

	out := tb.Select("c", "missing", "a")
	assert.Equal(t, []string{"c", "a"}, out.Columns())
	assert.Equal(t, "3", out.Value(0, "c").String())
	assert.Equal(t, "1", out.Value(0, "a").String())
}

func TestSortByNullsLast(t *testing.T) {
	tb := New("t", "corte")
	tb.MustAppendRow(Null())
	tb.MustAppendRow(Time(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	tb.MustAppendRow(Time(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))

	tb.SortBy("corte")
	assert.Equal(t, "2024-01-31", tb.Value(0, "corte").String())
	assert.Equal(t, "2024-03-31", tb.Value(1, "corte").String())
	assert.True(t, tb.Value(2, "corte").IsNull())
}

func TestDropDuplicates(t *testing.T) {
	tb := New("t", "k", "v")
	tb.MustAppendRow(String("a"), Int(1))
	tb.MustAppendRow(String("a"), Int(1))
	tb.MustAppendRow(String("a"), Int(2))

	out := tb.DropDuplicates()
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, "1", out.Value(0, "v").String())
	assert.Equal(t, "2", out.Value(1, "v").String())
}

func TestDropDuplicatesByKeepsFirst(t *testing.T) {
	tb := New("t", "numero", "valor")
	tb.MustAppendRow(String("100"), Int(10))
	tb.MustAppendRow(String("100"), Int(99))
	tb.MustAppendRow(String("200"), Int(20))

	out := tb.DropDuplicatesBy("numero")
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, "10", out.Value(0, "valor").String())
}

func TestPartition(t *testing.T) {
	tb := New("t", "v")
	for i := 0; i < 5; i++ {
		tb.MustAppendRow(Int(int64(i)))
	}
	even, odd := tb.Partition(func(r int) bool {
		d, _ := tb.Value(r, "v").Decimal()
		return d.IntPart()%2 == 0
	})
	assert.Equal(t, 3, even.NumRows())
	assert.Equal(t, 2, odd.NumRows())
}

func TestConcatUnionAndDrift(t *testing.T) {
	jan := New("feed", "cedula", "valor")
	jan.MustAppendRow(String("1"), Int(100))
	feb := New("feed", "cedula", "saldo")
	feb.MustAppendRow(String("2"), Int(50))

	out, warnings := Concat("feed", jan, feb)
	assert.Equal(t, []string{"cedula", "valor", "saldo"}, out.Columns())
	require.Equal(t, 2, out.NumRows())
	assert.True(t, out.Value(1, "valor").IsNull())
	assert.Equal(t, "50", out.Value(1, "saldo").String())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "column drift")
}

func TestConcatIdenticalPartsNoWarnings(t *testing.T) {
	a := New("feed", "x")
	a.MustAppendRow(Int(1))
	b := New("feed", "x")
	b.MustAppendRow(Int(2))

	out, warnings := Concat("feed", a, b)
	assert.Empty(t, warnings)
	assert.Equal(t, 2, out.NumRows())
}

func TestCloneIsIndependent(t *testing.T) {
	tb := New("t", "a")
	tb.MustAppendRow(Int(1))
	cp := tb.Clone()
	cp.Set(0, "a", Int(99))
	assert.Equal(t, "1", tb.Value(0, "a").String())
	assert.Equal(t, "99", cp.Value(0, "a").String())
}
