// Package storage persists validated products into the EAV catalog schema.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ruslano69/productimport/pkg/adapters"
	"github.com/ruslano69/productimport/pkg/bulk"
	"github.com/ruslano69/productimport/pkg/core/product"
	"github.com/ruslano69/productimport/pkg/report"
	"github.com/ruslano69/productimport/pkg/resolve"
)

// Config is the storage part of the import configuration
type Config struct {
	// DryRun validates and resolves but writes no product data.
	// Categories and options created during resolution are kept.
	DryRun bool

	AutoCreateCategories       bool
	AutoCreateOptionAttributes []string
	ProductTypeChange          TypeChangePolicy
	CategoryPathSeparator      string
	RootCategoryID             int64

	// ValidationRules are extra value checks per attribute code, applied
	// after the built-in ones.
	ValidationRules map[string][]FieldValidationRule
}

// DefaultConfig returns the defaults of the import section
func DefaultConfig() Config {
	return Config{
		AutoCreateCategories:  true,
		ProductTypeChange:     TypeChangeNonDestructive,
		CategoryPathSeparator: resolve.DefaultPathSeparator,
		RootCategoryID:        resolve.DefaultRootCategoryID,
	}
}

// value tables in write order
var valueTables = []string{
	"catalog_product_entity_varchar",
	"catalog_product_entity_int",
	"catalog_product_entity_decimal",
	"catalog_product_entity_text",
}

var valueColumns = []string{"entity_id", "attribute_id", "store_id", "value"}

var valueKeys = []string{"entity_id", "attribute_id", "store_id"}

// ProductStorage writes batches of one product kind with a handful of bulk
// statements. Its resolvers and caches live as long as the storage, which is
// one run.
type ProductStorage struct {
	db     adapters.DB
	d      adapters.Dialect
	writer *bulk.Writer
	cfg    Config
	log    report.Logger

	meta       *Metadata
	categories *resolve.CategoryPathResolver
	options    *resolve.OptionResolver
	validator  *FieldValidator

	// first line of every sku seen in the run
	seen map[string]int

	// products accepted by a dry run, by sku
	dryRun map[string]product.Kind
}

// New loads the catalog metadata and builds the run's resolvers
func New(ctx context.Context, db adapters.DB, d adapters.Dialect, cfg Config, log report.Logger) (*ProductStorage, error) {
	if cfg.ProductTypeChange == "" {
		cfg.ProductTypeChange = TypeChangeNonDestructive
	}

	validator, err := NewFieldValidator(cfg.ValidationRules)
	if err != nil {
		return nil, err
	}

	meta, err := LoadMetadata(ctx, db, d)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog metadata: %w", err)
	}

	categories, err := resolve.NewCategoryPathResolver(db, d, resolve.CategoryConfig{
		RootID:     cfg.RootCategoryID,
		Separator:  cfg.CategoryPathSeparator,
		AutoCreate: cfg.AutoCreateCategories,
		Attributes: meta.CategoryAttributes,
		StoreIDs:   meta.StoreIDs,
	})
	if err != nil {
		return nil, err
	}

	return &ProductStorage{
		db:         db,
		d:          d,
		writer:     bulk.NewWriter(db, d),
		cfg:        cfg,
		log:        log,
		meta:       meta,
		categories: categories,
		options:    resolve.NewOptionResolver(db, d, meta.SelectAttributes(), cfg.AutoCreateOptionAttributes),
		validator:  validator,
		seen:       make(map[string]int),
		dryRun:     make(map[string]product.Kind),
	}, nil
}

// Metadata returns the catalog metadata of the run
func (s *ProductStorage) Metadata() *Metadata { return s.meta }

// CategoriesCreated returns the number of categories created in the run
func (s *ProductStorage) CategoriesCreated() int { return s.categories.Created() }

// OptionsCreated returns the number of options created in the run
func (s *ProductStorage) OptionsCreated() int { return s.options.Created() }

// StoreSimpleProducts persists a batch of simple products
func (s *ProductStorage) StoreSimpleProducts(ctx context.Context, products []*product.Product) error {
	return s.store(ctx, product.KindSimple, products)
}

// StoreConfigurableProducts persists a batch of configurable products.
// Their variants must already be stored.
func (s *ProductStorage) StoreConfigurableProducts(ctx context.Context, products []*product.Product) error {
	return s.store(ctx, product.KindConfigurable, products)
}

type existingProduct struct {
	id     int64
	typeID string
}

type attrValue struct {
	attr    Attribute
	storeID int64
	value   any
	remove  bool
}

type prepared struct {
	p                 *product.Product
	setID             int64
	existing          bool
	values            []attrValue
	websiteIDs        []int64
	categoryIDs       []int64
	superAttributeIDs []int64
	variantIDs        []int64
	dropConfigurable  bool
}

func (s *ProductStorage) store(ctx context.Context, kind product.Kind, products []*product.Product) error {
	if len(products) == 0 {
		return nil
	}

	existing, err := s.lookupProducts(ctx, skusOf(products))
	if err != nil {
		return err
	}

	var variants map[string]existingProduct
	if kind == product.KindConfigurable {
		if variants, err = s.lookupProducts(ctx, variantSKUs(products)); err != nil {
			return err
		}
	}

	valid := make([]*prepared, 0, len(products))
	for _, p := range products {
		if !p.OK() {
			s.markSeen(p)
			continue
		}
		prep, err := s.prepare(ctx, p, existing, variants)
		if err != nil {
			return err
		}
		if p.OK() {
			valid = append(valid, prep)
		}
	}

	if s.cfg.DryRun {
		for _, prep := range valid {
			s.dryRun[prep.p.SKU()] = prep.p.Kind
		}
	} else if len(valid) > 0 {
		if err := s.persist(ctx, valid); err != nil {
			return err
		}
	}

	for _, p := range products {
		p.MarkOk()
		s.log.ProductImported(p)
	}
	return nil
}

// markSeen records the sku and reports whether it was seen before
func (s *ProductStorage) markSeen(p *product.Product) (int, bool) {
	if p.SKU() == "" {
		return 0, false
	}
	if line, ok := s.seen[p.SKU()]; ok {
		return line, true
	}
	s.seen[p.SKU()] = p.Line
	return 0, false
}

// prepare validates p and resolves every reference it holds. Problems of the
// record are added to p; the returned error is fatal.
func (s *ProductStorage) prepare(ctx context.Context, p *product.Product, existing, variants map[string]existingProduct) (*prepared, error) {
	prep := &prepared{p: p}

	if line, dup := s.markSeen(p); dup {
		p.AddErrorf("duplicate sku %s, first seen on line %d", p.SKU(), line)
		return prep, nil
	}

	setID, err := s.meta.AttributeSets.Resolve(ctx, p.AttributeSet.Name())
	if err != nil {
		p.AddError(err.Error())
	}
	prep.setID = setID

	s.checkType(prep, existing)

	for _, code := range scopeCodes(p) {
		storeID, ok := s.scopeStoreID(p, code)
		if !ok {
			continue
		}
		if websiteID, ok := s.meta.StoreWebsites[storeID]; ok {
			prep.websiteIDs = appendUnique(prep.websiteIDs, websiteID)
		}
		fs := p.StoreView(code)
		for _, attrCode := range fs.Codes() {
			if err := s.prepareValue(ctx, prep, storeID, fs, attrCode); err != nil {
				return nil, err
			}
		}
	}

	for _, ref := range p.Categories {
		id, err := s.categories.Resolve(ctx, ref.Name())
		if err != nil {
			if resolve.IsRecordError(err) {
				p.AddError(err.Error())
				continue
			}
			return nil, fmt.Errorf("failed to resolve category %q of %s: %w", ref.Name(), p.SKU(), err)
		}
		prep.categoryIDs = appendUnique(prep.categoryIDs, id)
	}

	if p.Kind == product.KindConfigurable {
		s.prepareConfigurable(prep, variants)
	}

	return prep, nil
}

func (s *ProductStorage) checkType(prep *prepared, existing map[string]existingProduct) {
	p := prep.p

	ex, ok := existing[p.SKU()]
	if !ok {
		if name, _ := p.Global().Name(); strings.TrimSpace(name) == "" {
			p.AddError("missing name for new product")
		}
		return
	}
	prep.existing = true

	from, known := product.ParseKind(ex.typeID)
	if !known {
		p.AddErrorf("existing product has unsupported type %s", ex.typeID)
		return
	}
	if err := s.cfg.ProductTypeChange.Check(from, p.Kind); err != nil {
		p.AddError(err.Error())
		return
	}
	prep.dropConfigurable = from == product.KindConfigurable && p.Kind == product.KindSimple
}

func (s *ProductStorage) scopeStoreID(p *product.Product, code string) (int64, bool) {
	if code == product.GlobalScope {
		return 0, true
	}
	id, ok := s.meta.Stores.Lookup(code)
	switch {
	case !ok:
		p.AddErrorf("store view not found: %s", code)
		return 0, false
	case id == 0:
		p.AddErrorf("store view %s is the global scope", code)
		return 0, false
	}
	return id, true
}

func (s *ProductStorage) prepareValue(ctx context.Context, prep *prepared, storeID int64, fs *product.FieldSet, code string) error {
	p := prep.p

	attr, ok := s.meta.Attributes[code]
	if !ok {
		p.AddErrorf("attribute not found: %s", code)
		return nil
	}

	if label, isOption := fs.Option(code); isOption {
		if !attr.IsSelect() {
			p.AddErrorf("attribute is not a select: %s", code)
			return nil
		}
		if label == "" {
			prep.values = append(prep.values, attrValue{attr: attr, storeID: storeID, remove: true})
			return nil
		}
		id, err := s.options.ForAttribute(code).Resolve(ctx, label)
		if err != nil {
			if resolve.IsRecordError(err) {
				p.AddError(err.Error())
				return nil
			}
			return fmt.Errorf("failed to resolve option %s=%s of %s: %w", code, label, p.SKU(), err)
		}
		prep.values = append(prep.values, attrValue{attr: attr, storeID: storeID, value: id})
		return nil
	}

	raw, _ := fs.Get(code)
	if raw == "" {
		prep.values = append(prep.values, attrValue{attr: attr, storeID: storeID, remove: true})
		return nil
	}

	value, err := convertValue(s.validator, attr, raw)
	if err != nil {
		p.AddError(err.Error())
		return nil
	}
	prep.values = append(prep.values, attrValue{attr: attr, storeID: storeID, value: value})
	return nil
}

func (s *ProductStorage) prepareConfigurable(prep *prepared, variants map[string]existingProduct) {
	p := prep.p

	if len(p.SuperAttributes) == 0 {
		p.AddError("configurable product needs at least one super_attribute")
	}
	for _, code := range p.SuperAttributes {
		attr, ok := s.meta.Attributes[code]
		switch {
		case !ok:
			p.AddErrorf("super attribute not found: %s", code)
		case !attr.IsSelect():
			p.AddErrorf("super attribute is not a select: %s", code)
		default:
			prep.superAttributeIDs = appendUnique(prep.superAttributeIDs, attr.ID)
		}
	}

	for _, ref := range p.Variants {
		sku := ref.Name()
		if sku == p.SKU() {
			p.AddErrorf("product cannot be its own variant: %s", sku)
			continue
		}
		if v, ok := variants[sku]; ok {
			if v.typeID != product.KindSimple.String() {
				p.AddErrorf("variant is not a simple product: %s", sku)
				continue
			}
			prep.variantIDs = appendUnique(prep.variantIDs, v.id)
			continue
		}
		if kind, ok := s.dryRun[sku]; ok && kind == product.KindSimple {
			continue
		}
		p.AddErrorf("variant not found: %s", sku)
	}
}

func (s *ProductStorage) persist(ctx context.Context, batch []*prepared) error {
	entities := make([]any, 0, len(batch)*5)
	skus := make([]string, 0, len(batch))
	for _, prep := range batch {
		options := 0
		if prep.p.Kind == product.KindConfigurable {
			options = 1
		}
		entities = append(entities, prep.p.SKU(), prep.setID, prep.p.Kind.String(), options, options)
		skus = append(skus, prep.p.SKU())
	}

	err := s.writer.Upsert(ctx, "catalog_product_entity",
		[]string{"sku", "attribute_set_id", "type_id", "has_options", "required_options"},
		[]string{"sku"}, entities)
	if err != nil {
		return err
	}

	stored, err := s.lookupProducts(ctx, skus)
	if err != nil {
		return err
	}
	ids := make(map[*prepared]int64, len(batch))
	for _, prep := range batch {
		ex, ok := stored[prep.p.SKU()]
		if !ok {
			return fmt.Errorf("product %s is missing after upsert", prep.p.SKU())
		}
		ids[prep] = ex.id
	}

	if err := s.writeValues(ctx, batch, ids); err != nil {
		return err
	}
	if err := s.writeLinks(ctx, batch, ids); err != nil {
		return err
	}
	return s.writeConfigurable(ctx, batch, ids)
}

func (s *ProductStorage) writeValues(ctx context.Context, batch []*prepared, ids map[*prepared]int64) error {
	upserts := make(map[string][]any)
	removals := make(map[string][]any)

	for _, prep := range batch {
		id := ids[prep]
		for _, v := range prep.values {
			table := v.attr.Table()
			if v.remove {
				removals[table] = append(removals[table], id, v.attr.ID, v.storeID)
			} else {
				upserts[table] = append(upserts[table], id, v.attr.ID, v.storeID, v.value)
			}
		}
	}

	for _, table := range valueTables {
		if err := s.writer.Upsert(ctx, table, valueColumns, valueKeys, upserts[table]); err != nil {
			return err
		}
		if err := s.writer.Delete(ctx, table, valueKeys, removals[table], ""); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductStorage) writeLinks(ctx context.Context, batch []*prepared, ids map[*prepared]int64) error {
	var websites, categories []any
	for _, prep := range batch {
		id := ids[prep]
		for _, websiteID := range s.productWebsites(prep) {
			websites = append(websites, id, websiteID)
		}
		for _, categoryID := range prep.categoryIDs {
			categories = append(categories, categoryID, id, 0)
		}
	}

	if err := s.writer.InsertIgnore(ctx, "catalog_product_website",
		[]string{"product_id", "website_id"}, websites); err != nil {
		return err
	}
	return s.writer.InsertIgnore(ctx, "catalog_category_product",
		[]string{"category_id", "product_id", "position"}, categories)
}

// productWebsites returns the websites of the store views p carries. A
// product with only global data belongs to every website.
func (s *ProductStorage) productWebsites(prep *prepared) []int64 {
	if len(prep.websiteIDs) == 0 {
		return s.meta.WebsiteIDs
	}
	return prep.websiteIDs
}

func (s *ProductStorage) writeConfigurable(ctx context.Context, batch []*prepared, ids map[*prepared]int64) error {
	var dropped, parents, superAttributes, links []any
	for _, prep := range batch {
		id := ids[prep]
		if prep.dropConfigurable {
			dropped = append(dropped, id)
		}
		if prep.p.Kind != product.KindConfigurable {
			continue
		}
		parents = append(parents, id)
		for position, attributeID := range prep.superAttributeIDs {
			superAttributes = append(superAttributes, id, attributeID, position)
		}
		for _, variantID := range prep.variantIDs {
			links = append(links, variantID, id)
		}
	}

	// a configurable product that became simple loses its configuration
	if err := s.writer.Delete(ctx, "catalog_product_super_attribute", []string{"product_id"}, dropped, ""); err != nil {
		return err
	}
	if err := s.writer.Delete(ctx, "catalog_product_super_link", []string{"parent_id"}, dropped, ""); err != nil {
		return err
	}

	// super attributes and links are replaced as a whole
	if err := s.writer.Delete(ctx, "catalog_product_super_attribute", []string{"product_id"}, parents, ""); err != nil {
		return err
	}
	if err := s.writer.InsertIgnore(ctx, "catalog_product_super_attribute",
		[]string{"product_id", "attribute_id", "position"}, superAttributes); err != nil {
		return err
	}
	if err := s.writer.Delete(ctx, "catalog_product_super_link", []string{"parent_id"}, parents, ""); err != nil {
		return err
	}
	return s.writer.Insert(ctx, "catalog_product_super_link", []string{"product_id", "parent_id"}, links)
}

// lookupProducts returns id and type of the stored products among skus
func (s *ProductStorage) lookupProducts(ctx context.Context, skus []string) (map[string]existingProduct, error) {
	found := make(map[string]existingProduct, len(skus))
	if len(skus) == 0 {
		return found, nil
	}

	args := make([]any, len(skus))
	for i, sku := range skus {
		args[i] = sku
	}
	query := `SELECT sku, entity_id, type_id FROM catalog_product_entity WHERE sku IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(skus)), ",") + `)`

	rows, err := s.db.QueryContext(ctx, s.d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		var ex existingProduct
		if err := rows.Scan(&sku, &ex.id, &ex.typeID); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		found[sku] = ex
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return found, nil
}

func skusOf(products []*product.Product) []string {
	skus := make([]string, 0, len(products))
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if sku := p.SKU(); sku != "" && !seen[sku] {
			seen[sku] = true
			skus = append(skus, sku)
		}
	}
	return skus
}

func variantSKUs(products []*product.Product) []string {
	var skus []string
	seen := make(map[string]bool)
	for _, p := range products {
		for _, ref := range p.Variants {
			if sku := ref.Name(); !seen[sku] {
				seen[sku] = true
				skus = append(skus, sku)
			}
		}
	}
	return skus
}

// scopeCodes returns "global" first, then the store view codes sorted
func scopeCodes(p *product.Product) []string {
	codes := make([]string, 0, len(p.StoreViews()))
	for code := range p.StoreViews() {
		if code != product.GlobalScope {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	if p.HasScope(product.GlobalScope) {
		codes = append([]string{product.GlobalScope}, codes...)
	}
	return codes
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
