package gitobj_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/plumbing"
)

func encodeAndDecodeRoundTrip(t *testing.T, obj, into gitobj.Object) {
	t.Helper()

	var payload bytes.Buffer
	n, err := obj.Encode(&payload)
	require.NoError(t, err)

	read, err := into.Decode(plumbing.ZeroHash, bytes.NewReader(payload.Bytes()), n)
	require.NoError(t, err)
	require.Equal(t, int(n), read)
}

func TestEmptyBlobMatchesWellKnownHash(t *testing.T) {
	var out bytes.Buffer
	w := gitobj.NewObjectWriter(&out)
	_, err := w.WriteHeader(gitobj.BlobObjectType, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, plumbing.EMPTY_BLOB, w.Sha().String())
}

func TestEmptyTreeMatchesWellKnownHash(t *testing.T) {
	var out bytes.Buffer
	w := gitobj.NewObjectWriter(&out)
	_, err := w.WriteHeader(gitobj.TreeObjectType, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, plumbing.EMPTY_TREE, w.Sha().String())
}

func TestTreeEncodeDecodeRoundTrip(t *testing.T) {
	blobSha := plumbing.NewHash("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	subSha := plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

	tree := &gitobj.Tree{Entries: []gitobj.TreeEntry{
		{Name: "a.txt", Mode: gitobj.ModeFile, Hash: blobSha},
		{Name: "bin", Mode: gitobj.ModeExecutable, Hash: blobSha},
		{Name: "sub", Mode: gitobj.ModeDir, Hash: subSha},
	}}

	var decoded gitobj.Tree
	encodeAndDecodeRoundTrip(t, tree, &decoded)

	require.Equal(t, tree.Entries, decoded.Entries)
}

func TestCommitEncodeDecodeRoundTrip(t *testing.T) {
	sig := gitobj.Signature{Name: "Jane Doe", Email: "jane@example.com", When: time.Unix(1717000000, 0).UTC()}
	commit := &gitobj.Commit{
		TreeHash:  plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904"),
		Parents:   []plumbing.Hash{plumbing.NewHash("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")},
		Author:    sig,
		Committer: sig,
		Message:   "a commit message\n",
	}

	var decoded gitobj.Commit
	encodeAndDecodeRoundTrip(t, commit, &decoded)

	require.Equal(t, commit.TreeHash, decoded.TreeHash)
	require.Equal(t, commit.Parents, decoded.Parents)
	require.Equal(t, commit.Author.Name, decoded.Author.Name)
	require.Equal(t, commit.Author.Email, decoded.Author.Email)
	require.Equal(t, commit.Author.When.Unix(), decoded.Author.When.Unix())
	require.Equal(t, commit.Message, decoded.Message)
}

func TestCommitWithNoParents(t *testing.T) {
	sig := gitobj.Signature{Name: "Root", Email: "root@example.com", When: time.Unix(1717000000, 0).UTC()}
	commit := &gitobj.Commit{
		TreeHash:  plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904"),
		Author:    sig,
		Committer: sig,
		Message:   "root commit\n",
	}

	var decoded gitobj.Commit
	encodeAndDecodeRoundTrip(t, commit, &decoded)
	require.Empty(t, decoded.Parents)
}

func TestParseSignature(t *testing.T) {
	sig, err := gitobj.ParseSignature("Jane Doe <jane@example.com> 1717000000 +0000")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", sig.Name)
	require.Equal(t, "jane@example.com", sig.Email)
	require.Equal(t, int64(1717000000), sig.When.Unix())
}

func TestParseSignatureMalformed(t *testing.T) {
	_, err := gitobj.ParseSignature("not a signature")
	require.Error(t, err)
}
