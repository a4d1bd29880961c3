package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrate_EmptyDSN(t *testing.T) {
	err := Migrate("", "up")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL is not set")
}

func TestMigrate_InvalidDirection(t *testing.T) {
	for _, dir := range []string{"", "UP", "sideways"} {
		t.Run(dir, func(t *testing.T) {
			err := Migrate("postgres://localhost/test", dir)
			require.Error(t, err)
			require.Contains(t, err.Error(), "direction must be up or down")
		})
	}
}

func TestMigrationFS_Pairs(t *testing.T) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	require.NoError(t, err)
	require.Contains(t, names, "migrations/1_init_users.up.sql")
	require.Contains(t, names, "migrations/1_init_users.down.sql")
}
