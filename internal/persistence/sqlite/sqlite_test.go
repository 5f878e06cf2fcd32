// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_AppliesStepsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	steps := []string{
		`CREATE TABLE a (id INTEGER PRIMARY KEY);`,
		`ALTER TABLE a ADD COLUMN name TEXT NOT NULL DEFAULT '';`,
	}
	require.NoError(t, Migrate(ctx, db, steps))
	require.NoError(t, Migrate(ctx, db, steps), "second run is a no-op")

	v, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.Exec(`INSERT INTO a (name) VALUES ('x')`)
	require.NoError(t, err)
}

func TestMigrate_FailedStepRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "m.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(ctx, db, []string{`CREATE TABLE ok (id INTEGER);`, `NOT SQL`})
	require.Error(t, err)

	v, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(context.Background(), path, QuickCheck)
	require.NoError(t, err)
	assert.Nil(t, issues)

	issues, err = VerifyIntegrity(context.Background(), path, FullCheck)
	require.NoError(t, err)
	assert.Nil(t, issues)
}

func TestParseCheckMode(t *testing.T) {
	m, err := ParseCheckMode("FULL")
	require.NoError(t, err)
	assert.Equal(t, FullCheck, m)

	_, err = ParseCheckMode("deep")
	assert.Error(t, err)
}
