package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "cedulanumero", NormalizeColumnName("CEDULA NUMERO"))
	assert.Equal(t, "cedulanumero", NormalizeColumnName("cedula_numero"))
	assert.Equal(t, "cedulanumero", NormalizeColumnName("  CedulaNumero "))
}

func TestResolveColumn(t *testing.T) {
	tb := New("t", "cedula_numero", "VLR FNZ", "fs1nacfec")

	// exact wins over everything
	assert.Equal(t, "cedula_numero", tb.ResolveColumn("cedula_numero"))
	// normalized match
	assert.Equal(t, "VLR FNZ", tb.ResolveColumn("vlr_fnz"))
	// substring match in either direction
	assert.Equal(t, "fs1nacfec", tb.ResolveColumn("nacfec"))
	assert.Equal(t, "", tb.ResolveColumn("saldo"))
}

func TestResolveAndRename(t *testing.T) {
	tb := New("t", "CC NIT", "dsm_num")
	missing := tb.ResolveAndRename("cc_nit", "dsm_num", "vlr_fnz")
	assert.Equal(t, []string{"vlr_fnz"}, missing)
	assert.True(t, tb.HasColumn("cc_nit"))
	assert.True(t, tb.HasColumn("dsm_num"))
}
