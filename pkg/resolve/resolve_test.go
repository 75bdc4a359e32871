package resolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/productimport/pkg/resolve"
	"github.com/ruslano69/productimport/pkg/storage/storagetest"
)

func TestNameConverter_Load(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)

	stores, err := resolve.LoadNameConverter(ctx, a.DB(), a.Dialect(), "store view",
		`SELECT code, store_id FROM store`)
	require.NoError(t, err)

	assert.Equal(t, 3, stores.Len())
	assert.EqualValues(t, storagetest.StoreDutch, stores.Convert("nl"))
	assert.Equal(t, resolve.NotFound, stores.Convert("de"))

	id, ok := stores.Lookup("admin")
	assert.True(t, ok)
	assert.Zero(t, id)

	_, err = stores.Resolve(ctx, "de")
	assert.EqualError(t, err, "store view not found: de")
}

func TestAttributeSetResolver(t *testing.T) {
	ctx := context.Background()
	a := storagetest.Open(t)

	sets, err := resolve.LoadAttributeSets(ctx, a.DB(), a.Dialect(), 4)
	require.NoError(t, err)

	id, err := sets.Resolve(ctx, "Apparel")
	require.NoError(t, err)
	assert.EqualValues(t, 9, id)

	id, err = sets.Resolve(ctx, "Furniture")
	assert.Equal(t, resolve.NotFound, id)
	assert.EqualError(t, err, "attribute set not found: Furniture")
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}

func TestResolversShareInterface(t *testing.T) {
	var _ resolve.Resolver = (*resolve.NameConverter)(nil)
	var _ resolve.Resolver = (*resolve.AttributeSetResolver)(nil)
	var _ resolve.Resolver = (*resolve.CategoryPathResolver)(nil)
}
