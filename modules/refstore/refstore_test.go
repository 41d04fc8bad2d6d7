package refstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/refstore"
)

func TestLoadLooseRefsAndHead(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	sha := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	require.NoError(t, adapter.Put(ctx, "dest/refs/heads/main", []byte(sha+"\n")))
	require.NoError(t, adapter.Put(ctx, "dest/HEAD", []byte("ref: refs/heads/main\n")))

	s := refstore.New(adapter, "dest/")
	require.NoError(t, s.Load(ctx))

	ref, ok := s.Get("refs/heads/main")
	require.True(t, ok)
	require.Equal(t, plumbing.HashReference, ref.Type())
	require.Equal(t, sha, ref.Hash().String())

	h, ok := s.Resolve("main")
	require.True(t, ok)
	require.Equal(t, sha, h.String())
}

func TestPackedRefsLowerPrecedenceThanLoose(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	looseSha := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	packedSha := "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

	require.NoError(t, adapter.Put(ctx, "dest/refs/heads/main", []byte(looseSha+"\n")))
	packed := "# pack-refs with: peeled fully-peeled sorted\n" + packedSha + " refs/heads/main\n"
	require.NoError(t, adapter.Put(ctx, "dest/packed-refs", []byte(packed)))

	s := refstore.New(adapter, "dest/")
	require.NoError(t, s.Load(ctx))

	ref, ok := s.Get("refs/heads/main")
	require.True(t, ok)
	require.Equal(t, looseSha, ref.Hash().String())
}

func TestResolveOrderTagBeforeBranch(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	tagSha := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	branchSha := "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

	require.NoError(t, adapter.Put(ctx, "dest/refs/tags/v1", []byte(tagSha+"\n")))
	require.NoError(t, adapter.Put(ctx, "dest/refs/heads/v1", []byte(branchSha+"\n")))

	s := refstore.New(adapter, "dest/")
	require.NoError(t, s.Load(ctx))

	h, ok := s.Resolve("v1")
	require.True(t, ok)
	require.Equal(t, tagSha, h.String())
}

func TestStoreWritesLooseRefs(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	s := refstore.New(adapter, "dest/")
	sha := plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	s.Set(plumbing.NewHashReference("refs/heads/main", sha))

	require.NoError(t, s.Store(ctx))

	data, err := adapter.Get(ctx, "dest/refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, sha.String()+"\n", string(data))
}

func TestResolveMissingRef(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()
	s := refstore.New(adapter, "dest/")
	require.NoError(t, s.Load(ctx))

	_, ok := s.Resolve("nonexistent")
	require.False(t, ok)
}
