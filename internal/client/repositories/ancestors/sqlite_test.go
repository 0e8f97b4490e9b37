package ancestors_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/client/localdb"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/ancestors"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *ancestors.SQLiteRepository {
	t.Helper()
	db, err := localdb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return ancestors.NewSQLiteRepository(db)
}

func TestPathAndDescendants(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, "f1", []string{"nb", common.RootID}))
	require.NoError(t, r.Insert(ctx, "d1", []string{"f1", "nb", common.RootID}))

	path, err := r.Path(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "nb", common.RootID}, path)

	desc, err := r.Descendants(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "d1"}, desc)

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, r.DeleteFor(ctx, "d1"))
	desc, err = r.Descendants(ctx, "nb")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, desc)
}

func TestBreadcrumbs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Breadcrumb(ctx, "x")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	require.NoError(t, r.SetBreadcrumb(ctx, "x", "nb,x"))
	require.NoError(t, r.SetBreadcrumb(ctx, "x", "nb,f,x"))
	b, err := r.Breadcrumb(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "nb,f,x", b)

	require.NoError(t, r.DeleteBreadcrumbs(ctx, "x"))
	_, err = r.Breadcrumb(ctx, "x")
	assert.Error(t, err)

	require.NoError(t, r.Insert(ctx, "y", []string{"nb"}))
	require.NoError(t, r.Clear(ctx))
	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
