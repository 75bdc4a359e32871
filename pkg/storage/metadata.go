package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruslano69/productimport/pkg/adapters"
	"github.com/ruslano69/productimport/pkg/resolve"
)

// Entity type ids of the catalog
const (
	CategoryEntityTypeID int64 = 3
	ProductEntityTypeID  int64 = 4
)

// Attribute is a product attribute definition
type Attribute struct {
	ID      int64
	Code    string
	Backend string // varchar, int, decimal, text, static
	Input   string // text, textarea, select, price, ...
}

// IsSelect reports whether values are option ids
func (a Attribute) IsSelect() bool { return a.Input == "select" }

// Table returns the value table of the attribute
func (a Attribute) Table() string { return "catalog_product_entity_" + a.Backend }

// Metadata is the catalog configuration read once per run
type Metadata struct {
	Stores        *resolve.NameConverter
	StoreIDs      []int64 // every store view except admin
	WebsiteIDs    []int64
	StoreWebsites map[int64]int64 // store view id to website id
	AttributeSets *resolve.AttributeSetResolver

	Attributes         map[string]Attribute
	CategoryAttributes map[string]int64
}

// LoadMetadata reads store views, product attribute sets and attributes
func LoadMetadata(ctx context.Context, db adapters.DB, d adapters.Dialect) (*Metadata, error) {
	stores, err := resolve.LoadNameConverter(ctx, db, d, "store view", `SELECT code, store_id FROM store`)
	if err != nil {
		return nil, err
	}

	sets, err := resolve.LoadAttributeSets(ctx, db, d, ProductEntityTypeID)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{Stores: stores, AttributeSets: sets}

	if err := meta.loadWebsites(ctx, db, d); err != nil {
		return nil, err
	}

	if meta.Attributes, err = loadAttributes(ctx, db, d, ProductEntityTypeID); err != nil {
		return nil, err
	}

	categoryAttrs, err := loadAttributes(ctx, db, d, CategoryEntityTypeID)
	if err != nil {
		return nil, err
	}
	meta.CategoryAttributes = make(map[string]int64, len(categoryAttrs))
	for code, attr := range categoryAttrs {
		meta.CategoryAttributes[code] = attr.ID
	}

	return meta, nil
}

// SelectAttributes returns code to id of every select attribute
func (m *Metadata) SelectAttributes() map[string]int64 {
	ids := make(map[string]int64)
	for code, attr := range m.Attributes {
		if attr.IsSelect() {
			ids[code] = attr.ID
		}
	}
	return ids
}

func (m *Metadata) loadWebsites(ctx context.Context, db adapters.DB, d adapters.Dialect) error {
	rows, err := db.QueryContext(ctx, d.Rebind(
		`SELECT store_id, website_id FROM store WHERE store_id <> 0 ORDER BY store_id`))
	if err != nil {
		return fmt.Errorf("failed to load store views: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	m.StoreWebsites = make(map[int64]int64)
	for rows.Next() {
		var storeID, websiteID int64
		if err := rows.Scan(&storeID, &websiteID); err != nil {
			return fmt.Errorf("failed to scan store view: %w", err)
		}
		m.StoreIDs = append(m.StoreIDs, storeID)
		m.StoreWebsites[storeID] = websiteID
		if !seen[websiteID] {
			seen[websiteID] = true
			m.WebsiteIDs = append(m.WebsiteIDs, websiteID)
		}
	}
	return rows.Err()
}

func loadAttributes(ctx context.Context, db adapters.DB, d adapters.Dialect, entityTypeID int64) (map[string]Attribute, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(
		`SELECT attribute_id, attribute_code, backend_type, frontend_input FROM eav_attribute WHERE entity_type_id = ?`),
		entityTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string]Attribute)
	for rows.Next() {
		var a Attribute
		var input sql.NullString
		if err := rows.Scan(&a.ID, &a.Code, &a.Backend, &input); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		a.Input = input.String
		attrs[a.Code] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attributes: %w", err)
	}
	return attrs, nil
}
