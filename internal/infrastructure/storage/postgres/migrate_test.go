package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "0001_ncf_schema", first.Version)
	assert.Len(t, first.Checksum, 64)

	// Constraint names the error classifier depends on.
	for _, name := range []string{
		constraintOpenSequence,
		constraintAssignmentNumber,
		constraintAssignmentDoc,
		constraintOwnerRNC,
	} {
		assert.Contains(t, first.SQL, name)
	}
}
