package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/model"
	"github.com/roach88/dagclosure/internal/testutil"
)

func refs(ids ...string) []model.NodeRef {
	out := make([]model.NodeRef, len(ids))
	for i, id := range ids {
		out[i] = model.Ref(id)
	}
	return out
}

func TestNavigation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	testutil.MustConnect(t, e, "a>b", "b>c", "x>b")

	tests := []struct {
		name string
		fn   func(context.Context, any) ([]model.NodeRef, error)
		node string
		want []model.NodeRef
	}{
		{"ancestors of c", e.Ancestors, "c", refs("a", "b", "x")},
		{"parents of c", e.Parents, "c", refs("b")},
		{"descendants of a", e.Descendants, "a", refs("b", "c")},
		{"children of a", e.Children, "a", refs("b")},
		{"parents of b", e.Parents, "b", refs("a", "x")},
		{"ancestors of a", e.Ancestors, "a", refs()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx, tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	root, err := e.IsRoot(ctx, "a")
	require.NoError(t, err)
	assert.True(t, root)
	root, err = e.IsRoot(ctx, "b")
	require.NoError(t, err)
	assert.False(t, root)

	leaf, err := e.IsLeaf(ctx, "c")
	require.NoError(t, err)
	assert.True(t, leaf)
	leaf, err = e.IsLeaf(ctx, "x")
	require.NoError(t, err)
	assert.False(t, leaf)

	asParent, err := e.LinksAsParent(ctx, "b")
	require.NoError(t, err)
	require.Len(t, asParent, 1)
	assert.Equal(t, model.Ref("c"), asParent[0].Descendant)

	asChild, err := e.LinksAsChild(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, asChild, 2)

	asAncestor, err := e.LinksAsAncestor(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, asAncestor, 2)

	asDescendant, err := e.LinksAsDescendant(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, asDescendant, 3)
}

func TestNavigation_OfType(t *testing.T) {
	e := newTestEngine(t, WithPolymorphic(true))
	ctx := context.Background()
	testutil.MustConnect(t, e, "Folder:root>Folder:docs", "Folder:docs>File:a", "Folder:root>File:b")

	files, err := e.DescendantsOfType(ctx, "Folder:root", "File")
	require.NoError(t, err)
	assert.Equal(t, []model.NodeRef{model.TypedRef("File", "a"), model.TypedRef("File", "b")}, files)

	children, err := e.ChildrenOfType(ctx, "Folder:root", "File")
	require.NoError(t, err)
	assert.Equal(t, []model.NodeRef{model.TypedRef("File", "b")}, children)

	folders, err := e.AncestorsOfType(ctx, "File:a", "Folder")
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	parents, err := e.ParentsOfType(ctx, "File:a", "Folder")
	require.NoError(t, err)
	assert.Equal(t, []model.NodeRef{model.TypedRef("Folder", "docs")}, parents)
}

func TestNavigation_RootAndLeafOfType(t *testing.T) {
	e := newTestEngine(t, WithPolymorphic(true))
	ctx := context.Background()
	testutil.MustConnect(t, e, "Folder:root>Folder:docs", "Folder:docs>File:a", "File:a>File:rev")

	root, err := e.IsRootOfType(ctx, "Folder:docs", "File")
	require.NoError(t, err)
	assert.True(t, root, "no File reaches docs")

	root, err = e.IsRootOfType(ctx, "Folder:docs", "Folder")
	require.NoError(t, err)
	assert.False(t, root)

	leaf, err := e.IsLeafOfType(ctx, "Folder:root", "Folder")
	require.NoError(t, err)
	assert.False(t, leaf)

	leaf, err = e.IsLeafOfType(ctx, "File:a", "Folder")
	require.NoError(t, err)
	assert.True(t, leaf)

	children, err := e.LinksAsParentOfType(ctx, "Folder:root", "File")
	require.NoError(t, err)
	assert.Empty(t, children)

	descendants, err := e.LinksAsAncestorOfType(ctx, "Folder:root", "File")
	require.NoError(t, err)
	assert.Len(t, descendants, 2)

	ancestors, err := e.LinksAsDescendantOfType(ctx, "File:rev", "Folder")
	require.NoError(t, err)
	assert.Len(t, ancestors, 2)

	parents, err := e.LinksAsChildOfType(ctx, "File:rev", "File")
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, model.TypedRef("File", "a"), parents[0].Ancestor)
}

func TestNavigation_OfTypeHomogeneous(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AncestorsOfType(ctx, "a", "File")
	assert.ErrorIs(t, err, ErrHomogeneous)
	_, err = e.ChildrenOfType(ctx, "a", "File")
	assert.ErrorIs(t, err, ErrHomogeneous)
	root, err := e.IsRootOfType(ctx, "a", "File")
	assert.ErrorIs(t, err, ErrHomogeneous)
	assert.False(t, root)
	_, err = e.LinksAsChildOfType(ctx, "a", "File")
	assert.ErrorIs(t, err, ErrHomogeneous)
}

func TestPaths(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	testutil.MustConnect(t, e, "a>b", "b>c", "c>d", "a>d", "a>c")

	longest, err := e.LongestPathBetween(ctx, "a", "d")
	require.NoError(t, err)
	assert.Equal(t, refs("b", "c", "d"), longest)

	shortest, err := e.ShortestPathBetween(ctx, "a", "d")
	require.NoError(t, err)
	assert.Equal(t, refs("d"), shortest)

	none, err := e.LongestPathBetween(ctx, "d", "a")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPaths_TieKeepsFirstChild(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	testutil.MustConnect(t, e, "a>c", "a>b", "b>d", "c>d")

	longest, err := e.LongestPathBetween(ctx, "a", "d")
	require.NoError(t, err)
	assert.Equal(t, refs("b", "d"), longest)

	shortest, err := e.ShortestPathBetween(ctx, "a", "d")
	require.NoError(t, err)
	assert.Equal(t, refs("b", "d"), shortest)
}

func TestPaths_IgnoresIndirectShortcuts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	testutil.MustConnect(t, e, testutil.Chain("a", "b", "c", "d")...)

	shortest, err := e.ShortestPathBetween(ctx, "a", "d")
	require.NoError(t, err)
	assert.Equal(t, refs("b", "c", "d"), shortest)
}
