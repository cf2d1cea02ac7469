package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrCodeSinkWrite, "failed to persist table")

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "FRSK6001")
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, Wrap(nil, ErrCodeSinkWrite, "ignored"))
}

func TestAppErrorIsMatchesOnCode(t *testing.T) {
	a := New(ErrCodeSchemaDrift, "one")
	b := New(ErrCodeSchemaDrift, "two")
	c := New(ErrCodeJoinCardinality, "three")
	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestRecoverability(t *testing.T) {
	assert.True(t, IsRecoverable(OptionalSourceError("collections", "missing")))
	assert.True(t, IsRecoverable(SchemaDriftError("portfolio", "corte")))
	assert.True(t, IsRecoverable(JoinCardinalityError("base+portfolio", 10, 12)))
	assert.False(t, IsRecoverable(CriticalSourceError("loan_master", "missing")))
	assert.False(t, IsRecoverable(stderrors.New("plain")))
}

func TestConstructorsCarryContext(t *testing.T) {
	err := CriticalSourceError("registry", "file not found")
	assert.Equal(t, SeverityCritical, err.Severity)
	assert.Equal(t, "registry", err.Context["dataset"])
	assert.NotEmpty(t, err.Suggestions)

	kc := KeyConstructionError("base", []string{"cedula", "numero"})
	assert.Equal(t, ErrCodeKeyConstruction, kc.Code)
	assert.Contains(t, kc.Message, "cedula, numero")
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeSchemaDrift, GetErrorCode(SchemaDriftError("x", "y")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stderrors.New("plain")))
}
