package tarextract_test

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/tarextract"
)

func buildTar(t *testing.T, entries map[string]struct {
	data []byte
	mode int64
}) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, e := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: e.mode,
			Size: int64(len(e.data)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestExtractRegularFiles(t *testing.T) {
	data := buildTar(t, map[string]struct {
		data []byte
		mode int64
	}{
		"./a.txt":    {data: []byte("hello"), mode: 0o644},
		"bin/run.sh": {data: []byte("#!/bin/sh\n"), mode: 0o755},
		"dir//b.txt": {data: []byte("world"), mode: 0o644},
	})

	edits, err := tarextract.Extract(bytes.NewReader(data), false)
	require.NoError(t, err)
	require.Len(t, edits, 3)

	byPath := make(map[string]tarextract.PathEdit)
	for _, e := range edits {
		byPath[e.Path] = e
	}

	require.Equal(t, []byte("hello"), byPath["a.txt"].Data)
	require.Equal(t, gitobj.ModeFile, byPath["a.txt"].Mode)
	require.Equal(t, gitobj.ModeExecutable, byPath["bin/run.sh"].Mode)
	require.Equal(t, []byte("world"), byPath["dir/b.txt"].Data)
}

func TestExtractSkipsDirectories(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "dir/", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "dir/file.txt", Mode: 0o644, Size: 1}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	edits, err := tarextract.Extract(bytes.NewReader(buf.Bytes()), false)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Equal(t, "dir/file.txt", edits[0].Path)
}

func TestExtractRejectsParentTraversal(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape.txt", Mode: 0o644, Size: 1}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, err = tarextract.Extract(bytes.NewReader(buf.Bytes()), false)
	require.Error(t, err)
	var invalid *tarextract.ErrInvalidPath
	require.ErrorAs(t, err, &invalid)
}

func TestExtractRejectsAbsolutePath(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "/etc/passwd", Mode: 0o644, Size: 1}))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, err = tarextract.Extract(bytes.NewReader(buf.Bytes()), false)
	require.Error(t, err)
}

func TestExtractEmptyTarReturnsErrEmptyTar(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.Close())

	_, err := tarextract.Extract(bytes.NewReader(buf.Bytes()), false)
	require.ErrorIs(t, err, tarextract.ErrEmptyTar)
}

func TestExtractLaterDuplicatePathPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "a.txt", Mode: 0o644, Size: 5}))
	_, err := tw.Write([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "a.txt", Mode: 0o644, Size: 6}))
	_, err = tw.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	edits, err := tarextract.Extract(bytes.NewReader(buf.Bytes()), false)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	require.Equal(t, []byte("first"), edits[0].Data)
	require.Equal(t, []byte("second"), edits[1].Data)
}
