package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDialect_Upsert(t *testing.T) {
	got := Dialect{}.Upsert([]string{"value"}, []string{"entity_id", "attribute_id", "store_id"})
	assert.Equal(t,
		`ON CONFLICT ("entity_id", "attribute_id", "store_id") DO UPDATE SET "value" = EXCLUDED."value"`,
		got)
}

func TestDialect_Placeholders(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, "WHERE a = $1 AND b IN ($2,$3)", d.Rebind("WHERE a = ? AND b IN (?,?)"))
}

func TestDialect_InsertIgnore(t *testing.T) {
	verb, suffix := Dialect{}.InsertIgnore()
	assert.Equal(t, "INSERT", verb)
	assert.Equal(t, "ON CONFLICT DO NOTHING", suffix)
}

func TestDialect_IsDuplicateKey(t *testing.T) {
	d := Dialect{}
	assert.True(t, d.IsDuplicateKey(fmt.Errorf("create category: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, d.IsDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.False(t, d.IsDuplicateKey(nil))
}
