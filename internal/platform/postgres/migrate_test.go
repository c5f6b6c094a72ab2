package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_init.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = parseVersion("init.sql")
	require.Error(t, err)

	_, err = parseVersion("abc_init.sql")
	require.Error(t, err)
}

func TestLoadMigrations_Ordered(t *testing.T) {
	ms, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].version, ms[i].version)
	}
	assert.Contains(t, ms[0].sql, "CREATE TABLE IF NOT EXISTS vendors")
}
