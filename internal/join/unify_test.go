package join

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrisk/internal/keys"
	"finrisk/internal/table"
	"finrisk/internal/transform"

	apperrors "finrisk/pkg/errors"
)

func corte(y int, m time.Month, d int) table.Value {
	return table.Time(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func unifyFixture() Inputs {
	lm := table.New("loan_master", "numero", "fs1sexo")
	lm.MustAppendRow(table.String("4"), table.String("F"))
	lm.MustAppendRow(table.String("9"), table.String("M"))

	reg := table.New("registry", "numero", "cedula", "corte", "valor")
	reg.MustAppendRow(table.String("4"), table.String("123"), corte(2024, 1, 31), table.Int(1_000_000))
	reg.MustAppendRow(table.String("9"), table.String("777"), corte(2024, 1, 31), table.Int(500_000))

	ac := table.New("portfolio", transform.KeyColumn, "corte", "diasatras", "saldofac")
	ac.MustAppendRow(table.String("123-4"), corte(2024, 1, 31), table.Int(45), table.Int(800))

	edades := table.New("age_of_debt", transform.KeyColumn, "capital")
	edades.MustAppendRow(table.String("123-4"), table.Int(300))

	r05 := table.New("payment_plan", transform.KeyColumn, "corte", "abono1")
	r05.MustAppendRow(table.String("123-4"), corte(2024, 1, 31), table.Int(150))

	rec := table.New("collections", transform.KeyColumn, "corte", "capitalrec")
	rec.MustAppendRow(table.String("777-9"), corte(2024, 1, 31), table.Int(60))

	return Inputs{
		LoanMaster:  lm,
		Registry:    reg,
		Portfolio:   ac,
		AgeOfDebt:   edades,
		PaymentPlan: r05,
		Collections: rec,
	}
}

func TestUnifyJoinsEveryFeed(t *testing.T) {
	out, err := Unify(unifyFixture())
	require.NoError(t, err)
	base := out.Base

	require.Equal(t, 2, base.NumRows())
	assert.Equal(t, "123-4", base.Value(0, transform.KeyColumn).String())
	assert.Equal(t, "777-9", base.Value(1, transform.KeyColumn).String())

	// registry backfills cedula, corte and the disbursed amount
	assert.Equal(t, "123", base.Value(0, "cedula").String())
	assert.Equal(t, "2024-01-31", base.Value(0, "corte").String())
	assert.Equal(t, "1000000", base.Value(0, "valor").String())

	// feed payloads land on their key
	assert.Equal(t, "45", base.Value(0, "diasatras").String())
	assert.Equal(t, "300", base.Value(0, "capital").String())
	assert.Equal(t, "150", base.Value(0, "abono1").String())
	assert.Equal(t, "60", base.Value(1, "capitalrec").String())

	// a loan absent from a feed keeps nulls, not zeros
	assert.True(t, base.Value(1, "diasatras").IsNull())
	assert.True(t, base.Value(0, "capitalrec").IsNull())

	// registry + four feed joins
	assert.Len(t, out.Stats, 5)
	for _, s := range out.Stats {
		assert.False(t, s.FannedOut(), s.Stage)
	}
	assert.Empty(t, out.Warnings)
}

func TestUnifyMandatoryInputs(t *testing.T) {
	in := unifyFixture()
	in.LoanMaster = nil
	_, err := Unify(in)
	assert.Error(t, err)

	in = unifyFixture()
	in.Registry = nil
	_, err = Unify(in)
	assert.Error(t, err)
}

func TestUnifyOptionalFeedsMayBeNil(t *testing.T) {
	in := unifyFixture()
	in.Portfolio = nil
	in.AgeOfDebt = nil
	in.PaymentPlan = nil
	in.Collections = nil

	out, err := Unify(in)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Base.NumRows())
	assert.Len(t, out.Stats, 1)
}

func TestUnifyExcludedAccounts(t *testing.T) {
	in := unifyFixture()
	excl := table.New("excluded_accounts", "CEDULA_NUMERO")
	excl.MustAppendRow(table.String("777-9"))
	in.ExcludedAccounts = excl

	out, err := Unify(in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Excluded)
	require.Equal(t, 1, out.Base.NumRows())
	assert.Equal(t, "123-4", out.Base.Value(0, transform.KeyColumn).String())
}

func TestUnifyExclusionsFromIdentifierPair(t *testing.T) {
	in := unifyFixture()
	excl := table.New("excluded_accounts", "cedula", "numero")
	excl.MustAppendRow(table.String("123"), table.String("4"))
	in.ExcludedAccounts = excl

	out, err := Unify(in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Excluded)
	assert.Equal(t, "777-9", out.Base.Value(0, transform.KeyColumn).String())
}

func TestUnifyPartitionsEmptyKeys(t *testing.T) {
	in := unifyFixture()
	// a loan with no number never matches the registry, so both key halves
	// come out empty
	in.LoanMaster.MustAppendRow(table.Null(), table.String("X"))

	ghost := table.New("portfolio", transform.KeyColumn, "corte", "diasatras", "saldofac")
	ghost.MustAppendRow(table.String("-"), table.Null(), table.Int(45), table.Int(800))
	in.Portfolio = ghost

	out, err := Unify(in)
	require.NoError(t, err)

	require.NotNil(t, out.Invalid)
	assert.Equal(t, 1, out.Invalid.NumRows())
	assert.Equal(t, "base_invalid_keys", out.Invalid.Name())

	// the bare-separator row is gone from the base and its portfolio
	// counterpart never lands anywhere
	require.Equal(t, 2, out.Base.NumRows())
	for r := 0; r < out.Base.NumRows(); r++ {
		assert.False(t, keys.IsEmpty(out.Base.Value(r, transform.KeyColumn).String()))
		assert.True(t, out.Base.Value(r, "diasatras").IsNull())
	}

	require.NotEmpty(t, out.Warnings)
	assert.Equal(t, apperrors.ErrCodeEmptyKey, apperrors.GetErrorCode(out.Warnings[0]))
}

func TestUnifyWarnsOnFanOut(t *testing.T) {
	in := unifyFixture()
	dup := table.New("portfolio", transform.KeyColumn, "corte", "saldofac")
	dup.MustAppendRow(table.String("123-4"), corte(2024, 1, 31), table.Int(1))
	dup.MustAppendRow(table.String("123-4"), corte(2024, 1, 31), table.Int(2))
	in.Portfolio = dup

	out, err := Unify(in)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Base.NumRows())
	assert.NotEmpty(t, out.Warnings)
}
