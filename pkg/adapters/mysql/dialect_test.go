package mysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestDialect_Upsert(t *testing.T) {
	got := Dialect{}.Upsert([]string{"value"}, []string{"entity_id", "attribute_id", "store_id"})
	assert.Equal(t, "ON DUPLICATE KEY UPDATE `value` = VALUES(`value`)", got)
}

func TestDialect_InsertIgnore(t *testing.T) {
	verb, suffix := Dialect{}.InsertIgnore()
	assert.Equal(t, "INSERT IGNORE", verb)
	assert.Empty(t, suffix)
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, "a = ? AND b = ?", Dialect{}.Rebind("a = ? AND b = ?"))
}

func TestDialect_IsDuplicateKey(t *testing.T) {
	d := Dialect{}
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

	assert.True(t, d.IsDuplicateKey(dup))
	assert.True(t, d.IsDuplicateKey(fmt.Errorf("insert: %w", dup)))
	assert.False(t, d.IsDuplicateKey(&mysql.MySQLError{Number: 1146}))
	assert.False(t, d.IsDuplicateKey(errors.New("Duplicate entry")))
}
