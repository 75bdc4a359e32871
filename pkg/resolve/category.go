package resolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruslano69/productimport/pkg/adapters"
	"github.com/ruslano69/productimport/pkg/bulk"
)

const (
	// DefaultRootCategoryID is the tree root new top level categories hang from
	DefaultRootCategoryID int64 = 1

	// DefaultPathSeparator separates the names of a category path
	DefaultPathSeparator = "/"

	// DefaultCategoryAttributeSetID is the attribute set of created categories
	DefaultCategoryAttributeSetID int64 = 3

	categoryURLSuffix = ".html"
)

// Category attribute codes written for every created category
var categoryAttributes = []string{
	"name", "display_mode", "url_key", "url_path",
	"is_active", "is_anchor", "include_in_menu",
}

// CategoryConfig configures a CategoryPathResolver
type CategoryConfig struct {
	RootID         int64
	Separator      string
	AttributeSetID int64

	// AutoCreate makes Resolve create missing levels; otherwise it behaves like ResolveExisting.
	AutoCreate bool

	// Attributes maps category attribute codes to ids
	Attributes map[string]int64

	// StoreIDs are the store views that get a URL rewrite per created category
	StoreIDs []int64
}

type categoryNode struct {
	id       int64
	treePath string
	level    int
	urlPath  string
}

// CategoryPathResolver resolves separator joined category name paths to
// category ids, creating missing levels on demand. Every resolved path and
// each of its prefixes is cached for the lifetime of the resolver.
type CategoryPathResolver struct {
	db     adapters.DB
	d      adapters.Dialect
	writer *bulk.Writer
	cfg    CategoryConfig

	root    *categoryNode
	cache   map[string]categoryNode
	created int
}

// NewCategoryPathResolver validates cfg; the root is read on first use
func NewCategoryPathResolver(db adapters.DB, d adapters.Dialect, cfg CategoryConfig) (*CategoryPathResolver, error) {
	if cfg.RootID == 0 {
		cfg.RootID = DefaultRootCategoryID
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultPathSeparator
	}
	if cfg.AttributeSetID == 0 {
		cfg.AttributeSetID = DefaultCategoryAttributeSetID
	}
	if cfg.AutoCreate {
		for _, code := range categoryAttributes {
			if _, ok := cfg.Attributes[code]; !ok {
				return nil, fmt.Errorf("category attribute %q is missing", code)
			}
		}
	}
	if _, ok := cfg.Attributes["name"]; !ok {
		return nil, fmt.Errorf("category attribute %q is missing", "name")
	}

	return &CategoryPathResolver{
		db:     db,
		d:      d,
		writer: bulk.NewWriter(db, d),
		cfg:    cfg,
		cache:  make(map[string]categoryNode),
	}, nil
}

// Resolve implements Resolver
func (r *CategoryPathResolver) Resolve(ctx context.Context, path string) (int64, error) {
	return r.resolve(ctx, path, r.cfg.AutoCreate)
}

// ResolveExisting resolves path without creating anything.
// A missing level reads "category not found: {path}".
func (r *CategoryPathResolver) ResolveExisting(ctx context.Context, path string) (int64, error) {
	return r.resolve(ctx, path, false)
}

// Created returns the number of categories created so far
func (r *CategoryPathResolver) Created() int { return r.created }

func (r *CategoryPathResolver) resolve(ctx context.Context, path string, create bool) (int64, error) {
	names, err := r.split(path)
	if err != nil {
		return NotFound, err
	}
	key := strings.Join(names, r.cfg.Separator)

	if node, ok := r.cache[key]; ok {
		return node.id, nil
	}

	parent, err := r.rootNode(ctx)
	if err != nil {
		return NotFound, err
	}

	for i, name := range names {
		prefix := strings.Join(names[:i+1], r.cfg.Separator)
		if node, ok := r.cache[prefix]; ok {
			parent = node
			continue
		}

		node, found, err := r.findChild(ctx, parent, name)
		if err != nil {
			return NotFound, err
		}
		if !found {
			if !create {
				return NotFound, &NotFoundError{Kind: "category", Name: key}
			}
			if node, err = r.createChild(ctx, parent, name); err != nil {
				return NotFound, err
			}
		}

		r.cache[prefix] = node
		parent = node
	}

	return parent.id, nil
}

func (r *CategoryPathResolver) split(path string) ([]string, error) {
	parts := strings.Split(path, r.cfg.Separator)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, &NotFoundError{Kind: "category", Name: path}
		}
		names = append(names, name)
	}
	return names, nil
}

func (r *CategoryPathResolver) rootNode(ctx context.Context) (categoryNode, error) {
	if r.root != nil {
		return *r.root, nil
	}

	var node categoryNode
	node.id = r.cfg.RootID
	err := r.db.QueryRowContext(ctx,
		r.d.Rebind(`SELECT path, level FROM catalog_category_entity WHERE entity_id = ?`),
		r.cfg.RootID).Scan(&node.treePath, &node.level)
	if errors.Is(err, sql.ErrNoRows) {
		return node, fmt.Errorf("root category %d does not exist", r.cfg.RootID)
	}
	if err != nil {
		return node, fmt.Errorf("failed to load root category: %w", err)
	}

	r.root = &node
	return node, nil
}

func (r *CategoryPathResolver) findChild(ctx context.Context, parent categoryNode, name string) (categoryNode, bool, error) {
	query := `SELECT e.entity_id, e.path, e.level, u.value
		FROM catalog_category_entity e
		JOIN catalog_category_entity_varchar n
			ON n.entity_id = e.entity_id AND n.attribute_id = ? AND n.store_id = 0
		LEFT JOIN catalog_category_entity_varchar u
			ON u.entity_id = e.entity_id AND u.attribute_id = ? AND u.store_id = 0
		WHERE e.parent_id = ? AND n.value = ?
		ORDER BY e.entity_id
		LIMIT 1`

	var node categoryNode
	var urlPath sql.NullString
	err := r.db.QueryRowContext(ctx, r.d.Rebind(query),
		r.cfg.Attributes["name"], r.cfg.Attributes["url_path"], parent.id, name,
	).Scan(&node.id, &node.treePath, &node.level, &urlPath)
	if errors.Is(err, sql.ErrNoRows) {
		return node, false, nil
	}
	if err != nil {
		return node, false, fmt.Errorf("failed to look up category %q under %d: %w", name, parent.id, err)
	}

	node.urlPath = urlPath.String
	if !urlPath.Valid {
		node.urlPath = JoinURLPath(parent.urlPath, categoryURLKey(name))
	}
	return node, true, nil
}

func (r *CategoryPathResolver) createChild(ctx context.Context, parent categoryNode, name string) (categoryNode, error) {
	urlKey := categoryURLKey(name)
	node := categoryNode{
		level:   parent.level + 1,
		urlPath: JoinURLPath(parent.urlPath, urlKey),
	}
	requestPath := node.urlPath + categoryURLSuffix

	if len(r.cfg.StoreIDs) > 0 {
		var taken int
		err := r.db.QueryRowContext(ctx,
			r.d.Rebind(`SELECT COUNT(*) FROM url_rewrite WHERE request_path = ?`), requestPath,
		).Scan(&taken)
		if err != nil {
			return node, fmt.Errorf("failed to check request path %q: %w", requestPath, err)
		}
		if taken > 0 {
			return node, fmt.Errorf("%w: %s", ErrRequestPathTaken, requestPath)
		}
	}

	_, err := r.db.ExecContext(ctx,
		r.d.Rebind(`UPDATE catalog_category_entity SET children_count = children_count + 1 WHERE entity_id = ?`),
		parent.id)
	if err != nil {
		return node, fmt.Errorf("failed to update children count of %d: %w", parent.id, err)
	}

	var position int
	err = r.db.QueryRowContext(ctx,
		r.d.Rebind(`SELECT COALESCE(MAX(position), 0) + 1 FROM catalog_category_entity WHERE parent_id = ?`),
		parent.id).Scan(&position)
	if err != nil {
		return node, fmt.Errorf("failed to compute position under %d: %w", parent.id, err)
	}

	node.id, err = r.d.InsertReturningID(ctx, r.db, r.d.Rebind(
		`INSERT INTO catalog_category_entity (attribute_set_id, parent_id, path, position, level, children_count)
		VALUES (?, ?, ?, ?, ?, 0)`), "entity_id",
		r.cfg.AttributeSetID, parent.id, parent.treePath, position, node.level)
	if err != nil {
		return node, r.createErr(name, err)
	}

	node.treePath = parent.treePath + "/" + strconv.FormatInt(node.id, 10)
	_, err = r.db.ExecContext(ctx,
		r.d.Rebind(`UPDATE catalog_category_entity SET path = ? WHERE entity_id = ?`),
		node.treePath, node.id)
	if err != nil {
		return node, fmt.Errorf("failed to set path of category %d: %w", node.id, err)
	}

	if err := r.writeAttributes(ctx, node, name, urlKey); err != nil {
		return node, r.createErr(name, err)
	}

	if err := r.writeRewrites(ctx, node, requestPath); err != nil {
		return node, r.createErr(name, err)
	}

	r.created++
	return node, nil
}

func (r *CategoryPathResolver) writeAttributes(ctx context.Context, node categoryNode, name, urlKey string) error {
	attr := r.cfg.Attributes
	cols := []string{"entity_id", "attribute_id", "store_id", "value"}

	varchars := []any{
		node.id, attr["name"], 0, name,
		node.id, attr["display_mode"], 0, "PRODUCTS",
		node.id, attr["url_key"], 0, urlKey,
		node.id, attr["url_path"], 0, node.urlPath,
	}
	if err := r.writer.Insert(ctx, "catalog_category_entity_varchar", cols, varchars); err != nil {
		return err
	}

	ints := []any{
		node.id, attr["is_active"], 0, 1,
		node.id, attr["is_anchor"], 0, 1,
		node.id, attr["include_in_menu"], 0, 1,
	}
	return r.writer.Insert(ctx, "catalog_category_entity_int", cols, ints)
}

func (r *CategoryPathResolver) writeRewrites(ctx context.Context, node categoryNode, requestPath string) error {
	target := fmt.Sprintf("catalog/category/view/id/%d", node.id)

	values := make([]any, 0, len(r.cfg.StoreIDs)*7)
	for _, storeID := range r.cfg.StoreIDs {
		values = append(values, "category", node.id, requestPath, target, 0, storeID, 1)
	}

	return r.writer.Insert(ctx, "url_rewrite",
		[]string{"entity_type", "entity_id", "request_path", "target_path", "redirect_type", "store_id", "is_autogenerated"},
		values)
}

func (r *CategoryPathResolver) createErr(name string, err error) error {
	if r.d.IsDuplicateKey(err) {
		return fmt.Errorf("%w of category %q: %v", ErrConcurrentCreate, name, err)
	}
	return fmt.Errorf("failed to create category %q: %w", name, err)
}

func categoryURLKey(name string) string {
	if key := URLKey(name); key != "" {
		return key
	}
	return "category"
}
