package resolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/productimport/pkg/adapters"
	"github.com/ruslano69/productimport/pkg/adapters/adapterstest"
	"github.com/ruslano69/productimport/pkg/adapters/sqlite"
	"github.com/ruslano69/productimport/pkg/resolve"
	"github.com/ruslano69/productimport/pkg/storage/storagetest"
)

var categoryAttributes = map[string]int64{
	"name":            45,
	"is_active":       46,
	"include_in_menu": 54,
	"display_mode":    61,
	"is_anchor":       67,
	"url_key":         119,
	"url_path":        120,
}

func newCategoryResolver(t *testing.T, db adapters.DB, a *sqlite.Adapter, autoCreate bool) *resolve.CategoryPathResolver {
	t.Helper()
	r, err := resolve.NewCategoryPathResolver(db, a.Dialect(), resolve.CategoryConfig{
		AutoCreate: autoCreate,
		Attributes: categoryAttributes,
		StoreIDs:   []int64{storagetest.StoreDefault, storagetest.StoreDutch},
	})
	require.NoError(t, err)
	return r
}

func TestCategoryPathResolver_CreatesTwoLevels(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	r := newCategoryResolver(t, a.DB(), a, true)

	shoes, err := r.Resolve(ctx, "Men/Shoes")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Created())
	assert.Equal(t, 3, storagetest.Count(t, a, "catalog_category_entity", ""))

	men := storagetest.Int(t, a, `SELECT parent_id FROM catalog_category_entity WHERE entity_id = ?`, shoes)
	assert.EqualValues(t, storagetest.RootCategoryID,
		storagetest.Int(t, a, `SELECT parent_id FROM catalog_category_entity WHERE entity_id = ?`, men))

	// children counts along the new branch
	assert.EqualValues(t, 1, storagetest.Int(t, a, `SELECT children_count FROM catalog_category_entity WHERE entity_id = 1`))
	assert.EqualValues(t, 1, storagetest.Int(t, a, `SELECT children_count FROM catalog_category_entity WHERE entity_id = ?`, men))
	assert.EqualValues(t, 0, storagetest.Int(t, a, `SELECT children_count FROM catalog_category_entity WHERE entity_id = ?`, shoes))

	assert.Equal(t, "1/2/3", storagetest.String(t, a, `SELECT path FROM catalog_category_entity WHERE entity_id = ?`, shoes))
	assert.EqualValues(t, 2, storagetest.Int(t, a, `SELECT level FROM catalog_category_entity WHERE entity_id = ?`, shoes))

	assert.Equal(t, "men/shoes", storagetest.String(t, a,
		`SELECT value FROM catalog_category_entity_varchar WHERE entity_id = ? AND attribute_id = 120 AND store_id = 0`, shoes))
	assert.Equal(t, "PRODUCTS", storagetest.String(t, a,
		`SELECT value FROM catalog_category_entity_varchar WHERE entity_id = ? AND attribute_id = 61`, shoes))
	assert.Equal(t, 3, storagetest.Count(t, a, "catalog_category_entity_int", "entity_id = ? AND value = 1", shoes))

	// one rewrite per created category and store view
	assert.Equal(t, 4, storagetest.Count(t, a, "url_rewrite", ""))
	assert.Equal(t, 2, storagetest.Count(t, a, "url_rewrite", "request_path = 'men/shoes.html' AND target_path = ?",
		"catalog/category/view/id/3"))
	assert.Equal(t, 2, storagetest.Count(t, a, "url_rewrite", "request_path = 'men.html' AND is_autogenerated = 1"))
}

func TestCategoryPathResolver_SiblingPositions(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	r := newCategoryResolver(t, a.DB(), a, true)

	var positions []int64
	for _, name := range []string{"Men", "Women", "Kids"} {
		id, err := r.Resolve(ctx, name)
		require.NoError(t, err)
		positions = append(positions,
			storagetest.Int(t, a, `SELECT position FROM catalog_category_entity WHERE entity_id = ?`, id))
	}

	assert.Equal(t, []int64{1, 2, 3}, positions)
	assert.EqualValues(t, 3, storagetest.Int(t, a, `SELECT children_count FROM catalog_category_entity WHERE entity_id = 1`))
}

func TestCategoryPathResolver_CacheHit(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	rec := adapterstest.NewRecorder(a.DB())
	r := newCategoryResolver(t, rec, a, true)

	first, err := r.Resolve(ctx, "Men/Shoes")
	require.NoError(t, err)
	require.NotZero(t, rec.Total())

	rec.Reset()
	second, err := r.Resolve(ctx, "Men/Shoes")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Zero(t, rec.Total(), "a cached path issues no query")

	_, err = r.Resolve(ctx, "Men")
	require.NoError(t, err)
	assert.Zero(t, rec.Total(), "prefixes are cached too")

	_, err = r.Resolve(ctx, "Men/Boots")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Created(), "each level is created once")
	assert.Zero(t, rec.Count("catalog_category_entity WHERE entity_id = ?"), "the root is read once")
}

func TestCategoryPathResolver_FindsExistingAcrossRuns(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)

	created, err := newCategoryResolver(t, a.DB(), a, true).Resolve(ctx, "Men/Shoes")
	require.NoError(t, err)

	next := newCategoryResolver(t, a.DB(), a, true)
	found, err := next.Resolve(ctx, " Men / Shoes ")
	require.NoError(t, err)
	assert.Equal(t, created, found)
	assert.Zero(t, next.Created())
	assert.Equal(t, 4, storagetest.Count(t, a, "url_rewrite", ""))
}

func TestCategoryPathResolver_ResolveExisting(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	r := newCategoryResolver(t, a.DB(), a, false)

	_, err := r.Resolve(ctx, "Men/Shoes")
	require.Error(t, err)
	assert.EqualError(t, err, "category not found: Men/Shoes")
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
	assert.True(t, resolve.IsRecordError(err))
	assert.Equal(t, 1, storagetest.Count(t, a, "catalog_category_entity", ""))

	_, err = r.ResolveExisting(ctx, "Men//Shoes")
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}

func TestCategoryPathResolver_CustomSeparator(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	r, err := resolve.NewCategoryPathResolver(a.DB(), a.Dialect(), resolve.CategoryConfig{
		Separator:  "|",
		AutoCreate: true,
		Attributes: categoryAttributes,
	})
	require.NoError(t, err)

	id, err := r.Resolve(ctx, "Home/Garden|Tools")
	require.NoError(t, err)
	assert.Equal(t, "home-garden/tools", storagetest.String(t, a,
		`SELECT value FROM catalog_category_entity_varchar WHERE entity_id = ? AND attribute_id = 120`, id))
	assert.Zero(t, storagetest.Count(t, a, "url_rewrite", ""), "no store views, no rewrites")
}

func TestCategoryPathResolver_RequestPathTaken(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	_, err := a.DB().ExecContext(ctx, `INSERT INTO url_rewrite (entity_type, entity_id, request_path, target_path, store_id)
		VALUES ('product', 10, 'sale.html', 'catalog/product/view/id/10', 1)`)
	require.NoError(t, err)

	r := newCategoryResolver(t, a.DB(), a, true)
	_, err = r.Resolve(ctx, "Sale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrRequestPathTaken))
	assert.True(t, resolve.IsRecordError(err))
	assert.Equal(t, 1, storagetest.Count(t, a, "catalog_category_entity", ""))
}

func TestCategoryPathResolver_DuplicateKeyIsConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)
	// a name row already owns the id the next category will get
	_, err := a.DB().ExecContext(ctx, `INSERT INTO catalog_category_entity_varchar (attribute_id, store_id, entity_id, value)
		VALUES (45, 0, 2, 'Ghost')`)
	require.NoError(t, err)

	r := newCategoryResolver(t, a.DB(), a, true)
	_, err = r.Resolve(ctx, "Men")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrConcurrentCreate))
	assert.False(t, resolve.IsRecordError(err))
}

func TestCategoryPathResolver_MissingRoot(t *testing.T) {
	a := storagetest.Open(t)
	r, err := resolve.NewCategoryPathResolver(a.DB(), a.Dialect(), resolve.CategoryConfig{
		RootID:     42,
		AutoCreate: true,
		Attributes: categoryAttributes,
	})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "Men")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root category 42")
}

func TestNewCategoryPathResolver_RequiresAttributes(t *testing.T) {
	a := storagetest.Open(t)
	_, err := resolve.NewCategoryPathResolver(a.DB(), a.Dialect(), resolve.CategoryConfig{
		AutoCreate: true,
		Attributes: map[string]int64{"name": 45},
	})
	assert.Error(t, err)
}
