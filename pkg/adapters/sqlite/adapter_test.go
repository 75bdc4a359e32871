package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Upsert(t *testing.T) {
	got := Dialect{}.Upsert([]string{"value"}, []string{"entity_id", "store_id"})
	assert.Equal(t, `ON CONFLICT ("entity_id", "store_id") DO UPDATE SET "value" = excluded."value"`, got)
}

func TestAdapter_InsertReturningIDAndDuplicateKey(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer a.Close(ctx)

	db := a.DB()
	_, err = db.ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, code TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)

	d := a.Dialect()
	first, err := d.InsertReturningID(ctx, db, `INSERT INTO t (code) VALUES (?)`, "id", "a")
	require.NoError(t, err)
	second, err := d.InsertReturningID(ctx, db, `INSERT INTO t (code) VALUES (?)`, "id", "b")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	_, err = d.InsertReturningID(ctx, db, `INSERT INTO t (code) VALUES (?)`, "id", "a")
	require.Error(t, err)
	assert.True(t, d.IsDuplicateKey(err))

	verb, _ := d.InsertIgnore()
	_, err = db.ExecContext(ctx, verb+` INTO t (code) VALUES (?)`, "a")
	assert.NoError(t, err)
}

func TestAdapter_MemoryDatabaseSurvivesQueries(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer a.Close(ctx)

	_, err = a.DB().ExecContext(ctx, `CREATE TABLE kept (x INTEGER)`)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		var n int
		require.NoError(t, a.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM kept`).Scan(&n))
	}
}
