// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UsesWAL(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "wal.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mode, err := JournalMode(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.db")
	db, err := Open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	steps := []string{
		`CREATE TABLE a (id INTEGER PRIMARY KEY);`,
		`ALTER TABLE a ADD COLUMN name TEXT;`,
	}

	v, err := Migrate(ctx, db, steps[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// idempotent
	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.ExecContext(ctx, `INSERT INTO a (name) VALUES ('x')`)
	require.NoError(t, err)

	_, err = Migrate(ctx, db, steps[:1])
	assert.Error(t, err, "older binary must refuse a newer schema")
}

func TestMigrate_FailedStepKeepsVersion(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "f.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(ctx, db, []string{`CREATE TABLE ok (id INTEGER);`, `NOT SQL`})
	require.Error(t, err)

	v, err := UserVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestVerifyIntegrity_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(ctx, dbPath, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT);")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		_, err = db.Exec("INSERT INTO test (data) VALUES (hex(randomblob(50)));")
		require.NoError(t, err)
	}
	// fold the WAL into the main file before corrupting it
	_, err = db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(ctx, dbPath, VerifyQuick)
	require.NoError(t, err)
	require.Nil(t, issues)

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	require.NoError(t, err)
	garbage := make([]byte, 100)
	_, _ = rand.Read(garbage)
	_, err = f.WriteAt(garbage, 4096)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	issues, err = VerifyIntegrity(ctx, dbPath, VerifyFull)
	if err == nil {
		assert.NotEmpty(t, issues)
	}
}
