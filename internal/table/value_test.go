package table

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "hola", String("hola").String())
	assert.Equal(t, "1500000", Int(1_500_000).String())
	assert.Equal(t, "2024-01-31",
		Time(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)).String())
}

func TestAsNumberCoercion(t *testing.T) {
	d, ok := String("  123.50 ").AsNumber()
	require.True(t, ok)
	assert.Equal(t, "123.5", d.String())

	_, ok = String("n/a").AsNumber()
	assert.False(t, ok)
	_, ok = String("").AsNumber()
	assert.False(t, ok)
	_, ok = Null().AsNumber()
	assert.False(t, ok)

	d, ok = Number(decimal.NewFromInt(7)).AsNumber()
	require.True(t, ok)
	assert.Equal(t, "7", d.String())
}

func TestAsTimeLayouts(t *testing.T) {
	cases := map[string]string{
		"2024-03-31":          "2024-03-31",
		"2024-03-31 10:30:00": "2024-03-31",
		"31/03/2024":          "2024-03-31",
	}
	for in, want := range cases {
		d, ok := String(in).AsTime()
		require.True(t, ok, "input %q", in)
		assert.Equal(t, want, d.Format("2006-01-02"), "input %q", in)
	}

	_, ok := String("not a date").AsTime()
	assert.False(t, ok)
	_, ok = Null().AsTime()
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Int(5).Equal(Float(5.0)))
	assert.False(t, Int(5).Equal(String("5")))
	assert.True(t, String("x").Equal(String("x")))

	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Time(d).Equal(Time(d)))
}
