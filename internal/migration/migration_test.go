package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	source, err := iofs.New(sub, ".")
	require.NoError(t, err)

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	version, count := first, 1
	for {
		next, err := source.Next(version)
		if err != nil {
			break
		}
		assert.Equal(t, version+1, next)
		version = next
		count++
	}
	assert.Equal(t, 4, count)
}

func TestRunMigrationsNeedsHandle(t *testing.T) {
	_, err := RunMigrations(nil)
	assert.Error(t, err)
}
