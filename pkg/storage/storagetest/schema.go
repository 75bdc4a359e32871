// Package storagetest installs a minimal catalog schema into an in-memory
// SQLite database for tests.
package storagetest

import (
	"context"
	"testing"

	"github.com/ruslano69/productimport/pkg/adapters/sqlite"
)

// Fixture ids seeded by Open
const (
	RootCategoryID          = 1
	DefaultProductSetID     = 4
	DefaultCategorySetID    = 3
	StoreAdmin              = 0
	StoreDefault            = 1
	StoreDutch              = 2
	OptionColorRed          = 1
	OptionColorBlue         = 2
	AttributeName           = 73
	AttributePrice          = 77
	AttributeColor          = 93
	AttributeSize           = 144
	AttributeStatus         = 97
	AttributeDescription    = 75
	CategoryAttributeName   = 45
	CategoryAttributeURLKey = 119
)

// Schema is the catalog subset the importer reads and writes
var Schema = []string{
	`CREATE TABLE store (
		store_id INTEGER PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		website_id INTEGER NOT NULL,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE eav_attribute_set (
		attribute_set_id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type_id INTEGER NOT NULL,
		attribute_set_name TEXT NOT NULL,
		UNIQUE (entity_type_id, attribute_set_name)
	)`,
	`CREATE TABLE eav_attribute (
		attribute_id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type_id INTEGER NOT NULL,
		attribute_code TEXT NOT NULL,
		backend_type TEXT NOT NULL,
		frontend_input TEXT,
		UNIQUE (entity_type_id, attribute_code)
	)`,
	`CREATE TABLE eav_attribute_option (
		option_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_id INTEGER NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE eav_attribute_option_value (
		value_id INTEGER PRIMARY KEY AUTOINCREMENT,
		option_id INTEGER NOT NULL,
		store_id INTEGER NOT NULL,
		value TEXT
	)`,
	`CREATE TABLE catalog_category_entity (
		entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_set_id INTEGER NOT NULL DEFAULT 0,
		parent_id INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL,
		position INTEGER NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		children_count INTEGER NOT NULL
	)`,
	`CREATE TABLE catalog_category_entity_varchar (
		value_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_id INTEGER NOT NULL,
		store_id INTEGER NOT NULL,
		entity_id INTEGER NOT NULL,
		value TEXT,
		UNIQUE (entity_id, attribute_id, store_id)
	)`,
	`CREATE TABLE catalog_category_entity_int (
		value_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_id INTEGER NOT NULL,
		store_id INTEGER NOT NULL,
		entity_id INTEGER NOT NULL,
		value INTEGER,
		UNIQUE (entity_id, attribute_id, store_id)
	)`,
	`CREATE TABLE url_rewrite (
		url_rewrite_id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		request_path TEXT,
		target_path TEXT,
		redirect_type INTEGER NOT NULL DEFAULT 0,
		store_id INTEGER NOT NULL,
		is_autogenerated INTEGER NOT NULL DEFAULT 0,
		UNIQUE (request_path, store_id)
	)`,
	`CREATE TABLE catalog_product_entity (
		entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_set_id INTEGER NOT NULL DEFAULT 0,
		type_id TEXT NOT NULL DEFAULT 'simple',
		sku TEXT NOT NULL UNIQUE,
		has_options INTEGER NOT NULL DEFAULT 0,
		required_options INTEGER NOT NULL DEFAULT 0
	)`,
	valueTable("catalog_product_entity_varchar", "TEXT"),
	valueTable("catalog_product_entity_int", "INTEGER"),
	valueTable("catalog_product_entity_decimal", "NUMERIC"),
	valueTable("catalog_product_entity_text", "TEXT"),
	`CREATE TABLE catalog_product_website (
		product_id INTEGER NOT NULL,
		website_id INTEGER NOT NULL,
		PRIMARY KEY (product_id, website_id)
	)`,
	`CREATE TABLE catalog_category_product (
		entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		UNIQUE (category_id, product_id)
	)`,
	`CREATE TABLE catalog_product_super_attribute (
		product_super_attribute_id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		attribute_id INTEGER NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		UNIQUE (product_id, attribute_id)
	)`,
	`CREATE TABLE catalog_product_super_link (
		link_id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		parent_id INTEGER NOT NULL,
		UNIQUE (product_id, parent_id)
	)`,
}

// Seed is the reference data every fixture starts with
var Seed = []string{
	`INSERT INTO store (store_id, code, website_id, name) VALUES
		(0, 'admin', 0, 'Admin'),
		(1, 'default', 1, 'Default Store View'),
		(2, 'nl', 1, 'Nederlands')`,
	`INSERT INTO eav_attribute_set (attribute_set_id, entity_type_id, attribute_set_name) VALUES
		(3, 3, 'Default'),
		(4, 4, 'Default'),
		(9, 4, 'Apparel')`,
	`INSERT INTO eav_attribute (attribute_id, entity_type_id, attribute_code, backend_type, frontend_input) VALUES
		(45, 3, 'name', 'varchar', 'text'),
		(46, 3, 'is_active', 'int', 'select'),
		(54, 3, 'include_in_menu', 'int', 'select'),
		(61, 3, 'display_mode', 'varchar', 'select'),
		(67, 3, 'is_anchor', 'int', 'select'),
		(119, 3, 'url_key', 'varchar', 'text'),
		(120, 3, 'url_path', 'varchar', 'text'),
		(73, 4, 'name', 'varchar', 'text'),
		(74, 4, 'sku', 'static', 'text'),
		(75, 4, 'description', 'text', 'textarea'),
		(76, 4, 'short_description', 'text', 'textarea'),
		(77, 4, 'price', 'decimal', 'price'),
		(78, 4, 'special_price', 'decimal', 'price'),
		(82, 4, 'weight', 'decimal', 'weight'),
		(84, 4, 'meta_title', 'varchar', 'text'),
		(86, 4, 'meta_description', 'varchar', 'textarea'),
		(93, 4, 'color', 'int', 'select'),
		(97, 4, 'status', 'int', 'select'),
		(99, 4, 'visibility', 'int', 'select'),
		(121, 4, 'url_key', 'varchar', 'text'),
		(144, 4, 'size', 'int', 'select')`,
	`INSERT INTO eav_attribute_option (option_id, attribute_id, sort_order) VALUES
		(1, 93, 1),
		(2, 93, 2)`,
	`INSERT INTO eav_attribute_option_value (option_id, store_id, value) VALUES
		(1, 0, 'Red'),
		(2, 0, 'Blue'),
		(2, 2, 'Blauw')`,
	`INSERT INTO catalog_category_entity (entity_id, attribute_set_id, parent_id, path, position, level, children_count) VALUES
		(1, 3, 0, '1', 0, 0, 0)`,
	`INSERT INTO catalog_category_entity_varchar (attribute_id, store_id, entity_id, value) VALUES
		(45, 0, 1, 'Root Catalog')`,
}

func valueTable(name, valueType string) string {
	return `CREATE TABLE ` + name + ` (
		value_id INTEGER PRIMARY KEY AUTOINCREMENT,
		attribute_id INTEGER NOT NULL,
		store_id INTEGER NOT NULL DEFAULT 0,
		entity_id INTEGER NOT NULL,
		value ` + valueType + `,
		UNIQUE (entity_id, attribute_id, store_id)
	)`
}

// Open returns a connected in-memory SQLite adapter with Schema and Seed applied.
// The adapter is closed when the test ends.
func Open(t testing.TB) *sqlite.Adapter {
	t.Helper()
	ctx := context.Background()

	a, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { a.Close(ctx) })

	for _, stmt := range append(append([]string(nil), Schema...), Seed...) {
		if _, err := a.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("install fixture: %v\n%s", err, stmt)
		}
	}
	return a
}

// Count returns SELECT COUNT(*) FROM table [WHERE where]
func Count(t testing.TB, a *sqlite.Adapter, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := a.DB().QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// String returns a single string column of a single row
func String(t testing.TB, a *sqlite.Adapter, query string, args ...any) string {
	t.Helper()
	var s string
	if err := a.DB().QueryRowContext(context.Background(), query, args...).Scan(&s); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return s
}

// Int returns a single integer column of a single row
func Int(t testing.TB, a *sqlite.Adapter, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := a.DB().QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}
