package cli

import (
	"testing"

	"github.com/pastorenue/expothesis/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"], "migrate command missing")
	assert.True(t, names["schema"], "schema command missing")
}

func TestMigrateFlagDefaults(t *testing.T) {
	root := NewRootCmd()
	migrate, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)

	table, err := migrate.Flags().GetString("table")
	require.NoError(t, err)
	assert.Equal(t, core.TableAll, table)

	dryRun, err := migrate.Flags().GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, dryRun)
}

func TestAllConfigTablesRegistered(t *testing.T) {
	// The migrate command imports the tables package for registration.
	assert.Equal(t,
		[]string{"experiments", "user_groups", "feature_flags", "feature_gates", "cuped_configs"},
		core.Names())
}
