package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/apperror"
)

func TestRule_Eval(t *testing.T) {
	rule, err := Compile(`document.counterparty_tax_id != "" && document.total > 250000.0`)
	require.NoError(t, err)

	ok, err := rule.Eval(map[string]any{"counterparty_tax_id": "101010101", "total": 300000.0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rule.Eval(map[string]any{"counterparty_tax_id": "", "total": 300000.0})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRule_NonBoolean(t *testing.T) {
	rule, err := Compile(`document.type`)
	require.NoError(t, err)

	_, err = rule.Eval(map[string]any{"type": "invoice"})
	assert.Error(t, err)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`document.type ==`)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
