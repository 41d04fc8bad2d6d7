package prefixcopy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/prefixcopy"
)

func TestEnsureEmpty(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	require.NoError(t, prefixcopy.EnsureEmpty(ctx, adapter, "dest/"))

	require.NoError(t, adapter.Put(ctx, "dest/refs/heads/main", []byte("x")))
	err := prefixcopy.EnsureEmpty(ctx, adapter, "dest/")
	require.ErrorIs(t, err, prefixcopy.ErrPrefixNotEmpty)
}

func TestCopyDuplicatesEveryKeyUnderNewPrefix(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	keys := map[string]string{
		"base/objects/ab/cdef": "blob-1",
		"base/objects/12/3456": "blob-2",
		"base/refs/heads/main": "4b825dc642cb6eb9a060e54bf8d69288fbee4904\n",
		"base/HEAD":            "ref: refs/heads/main\n",
	}
	for k, v := range keys {
		require.NoError(t, adapter.Put(ctx, k, []byte(v)))
	}

	n, err := prefixcopy.Copy(ctx, adapter, "base/", "dest/")
	require.NoError(t, err)
	require.Equal(t, len(keys), n)

	for k, v := range keys {
		destKey := "dest/" + k[len("base/"):]
		got, err := adapter.Get(ctx, destKey)
		require.NoError(t, err)
		require.Equal(t, v, string(got))
	}
}

func TestCopyEmptySource(t *testing.T) {
	ctx := context.Background()
	adapter := objstore.NewMemoryAdapter()

	n, err := prefixcopy.Copy(ctx, adapter, "base/", "dest/")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
