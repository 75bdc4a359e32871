/*
Package adapters provides the store abstraction the product import writes through.

# Two levels

	┌─────────────────────────────────────────┐
	│    Import core                          │
	│  - storage.ProductStorage               │
	│  - resolve.CategoryPathResolver         │
	│  - bulk.Writer                          │
	└─────────────────┬───────────────────────┘
	                  │
	┌─────────────────▼───────────────────────┐
	│  Level 1: Adapter + Dialect + DB        │  ← pkg/adapters
	└─────────────────┬───────────────────────┘
	                  │
	        ┌─────────┼─────────┐
	        │         │         │
	┌───────▼────┐ ┌──▼──────┐ ┌▼────────┐
	│ MySQL      │ │PostgreSQL│ │ SQLite  │  ← Level 2: drivers
	└────────────┘ └──────────┘ └─────────┘

An Adapter owns exactly one open connection: every adapter limits its
*sql.DB to a single connection, so the run shares one long-lived handle and
temporary state (and sqlite ":memory:" databases) stay consistent.

Queries are written once with ? markers and passed through Dialect.Rebind.
Dialect also carries the verbs that differ between stores: insert-ignore,
upsert, generated id retrieval and duplicate key detection.

# Usage

	import (
	    "github.com/ruslano69/productimport/pkg/adapters"
	    _ "github.com/ruslano69/productimport/pkg/adapters/mysql"
	)

	adapter, err := adapters.New(ctx, adapters.Config{
	    Type: "mysql",
	    DSN:  "shop:secret@tcp(localhost:3306)/shop",
	})
	if err != nil {
	    return err
	}
	defer adapter.Close(ctx)
*/
package adapters
