package treebuild_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/tarextract"
	"github.com/antgroup/gitsync/modules/treebuild"
)

func newStore(t *testing.T) *gitobj.Store {
	t.Helper()
	store, err := gitobj.NewStore(objstore.NewMemoryAdapter(), "base/")
	require.NoError(t, err)
	return store
}

func fetchTree(t *testing.T, ctx context.Context, store *gitobj.Store, sha plumbing.Hash) *gitobj.Tree {
	t.Helper()
	obj, err := store.Fetch(ctx, sha)
	require.NoError(t, err)
	tree, ok := obj.(*gitobj.Tree)
	require.True(t, ok)
	return tree
}

func entryByName(tree *gitobj.Tree, name string) (gitobj.TreeEntry, bool) {
	for _, e := range tree.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return gitobj.TreeEntry{}, false
}

func TestBuildFromEmptyParentCreatesImplicitDirectories(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	edits := []tarextract.PathEdit{
		{Path: "README.md", Data: []byte("hello"), Mode: gitobj.ModeFile},
		{Path: "a/b/c/deep.txt", Data: []byte("deep"), Mode: gitobj.ModeFile},
	}

	root, err := treebuild.Build(ctx, store, plumbing.ZeroHash, edits)
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	rootTree := fetchTree(t, ctx, store, root)
	readme, ok := entryByName(rootTree, "README.md")
	require.True(t, ok)
	require.Equal(t, gitobj.ModeFile, readme.Mode)

	aEntry, ok := entryByName(rootTree, "a")
	require.True(t, ok)
	require.True(t, aEntry.Mode.IsDir())

	aTree := fetchTree(t, ctx, store, aEntry.Hash)
	bEntry, ok := entryByName(aTree, "b")
	require.True(t, ok)

	bTree := fetchTree(t, ctx, store, bEntry.Hash)
	cEntry, ok := entryByName(bTree, "c")
	require.True(t, ok)

	cTree := fetchTree(t, ctx, store, cEntry.Hash)
	deepEntry, ok := entryByName(cTree, "deep.txt")
	require.True(t, ok)

	blobObj, err := store.Fetch(ctx, deepEntry.Hash)
	require.NoError(t, err)
	blob, ok := blobObj.(*gitobj.Blob)
	require.True(t, ok)
	require.Equal(t, []byte("deep"), blob.Data)
}

func TestBuildOverlaysEditsOntoParentTree(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base, err := treebuild.Build(ctx, store, plumbing.ZeroHash, []tarextract.PathEdit{
		{Path: "keep.txt", Data: []byte("keep"), Mode: gitobj.ModeFile},
		{Path: "replace.txt", Data: []byte("old"), Mode: gitobj.ModeFile},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	updated, err := treebuild.Build(ctx, store, base, []tarextract.PathEdit{
		{Path: "replace.txt", Data: []byte("new"), Mode: gitobj.ModeFile},
		{Path: "added.txt", Data: []byte("added"), Mode: gitobj.ModeFile},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	tree := fetchTree(t, ctx, store, updated)
	require.Len(t, tree.Entries, 3)

	keep, ok := entryByName(tree, "keep.txt")
	require.True(t, ok)
	keepBlob, err := store.Fetch(ctx, keep.Hash)
	require.NoError(t, err)
	require.Equal(t, []byte("keep"), keepBlob.(*gitobj.Blob).Data)

	replaced, ok := entryByName(tree, "replace.txt")
	require.True(t, ok)
	replacedBlob, err := store.Fetch(ctx, replaced.Hash)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), replacedBlob.(*gitobj.Blob).Data)

	added, ok := entryByName(tree, "added.txt")
	require.True(t, ok)
	addedBlob, err := store.Fetch(ctx, added.Hash)
	require.NoError(t, err)
	require.Equal(t, []byte("added"), addedBlob.(*gitobj.Blob).Data)
}

func TestBuildDemotesFileToDirectory(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base, err := treebuild.Build(ctx, store, plumbing.ZeroHash, []tarextract.PathEdit{
		{Path: "a", Data: []byte("was-a-file"), Mode: gitobj.ModeFile},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	updated, err := treebuild.Build(ctx, store, base, []tarextract.PathEdit{
		{Path: "a/b.txt", Data: []byte("now-a-dir"), Mode: gitobj.ModeFile},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	tree := fetchTree(t, ctx, store, updated)
	require.Len(t, tree.Entries, 1)
	aEntry, ok := entryByName(tree, "a")
	require.True(t, ok)
	require.True(t, aEntry.Mode.IsDir())
}

func TestBuildEntriesAreInCanonicalGitOrder(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// "b" as a subtree sorts after "b.txt" when compared with an implicit
	// trailing slash ("b/" > "b.txt", since '/' sorts after '.'), the
	// opposite of a naive string sort.
	root, err := treebuild.Build(ctx, store, plumbing.ZeroHash, []tarextract.PathEdit{
		{Path: "b.txt", Data: []byte("x"), Mode: gitobj.ModeFile},
		{Path: "b/c.txt", Data: []byte("y"), Mode: gitobj.ModeFile},
	})
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	tree := fetchTree(t, ctx, store, root)
	require.Len(t, tree.Entries, 2)
	require.Equal(t, "b.txt", tree.Entries[0].Name)
	require.Equal(t, "b", tree.Entries[1].Name)
}
