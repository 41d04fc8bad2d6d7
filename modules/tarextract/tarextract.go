// Package tarextract turns a tar archive into an ordered list of path
// edits: regular files only, normalized paths, mode derived from the
// execute bit.
package tarextract

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/streamio"
)

// ErrEmptyTar is returned when an archive produced zero regular-file
// edits.
var ErrEmptyTar = errors.New("tarextract: archive contains no regular files")

// ErrInvalidPath is returned for a tar entry whose name cannot be
// normalized into a safe relative path.
type ErrInvalidPath struct {
	Name string
}

func (e *ErrInvalidPath) Error() string {
	return fmt.Sprintf("tarextract: invalid path in archive: %q", e.Name)
}

// PathEdit is one file to add or overwrite at Path.
type PathEdit struct {
	Path string
	Data []byte
	Mode gitobj.FileMode
}

// Extract streams r as a tar archive (optionally gzip-compressed, per
// gzipped) and returns one PathEdit per regular-file entry, in archive
// order. Non-regular entries (directories, symlinks, etc.) are skipped,
// per the v1 scope of this pipeline.
//
// A single pass over r, never seeking, matching tarfile's streaming
// "r|*" mode in the reference implementation this is ported from.
func Extract(r io.Reader, gzipped bool) ([]PathEdit, error) {
	buffered := streamio.GetBufioReader(r)
	defer streamio.PutBufioReader(buffered)
	r = buffered

	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("tarextract: open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	var edits []PathEdit

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tarextract: read archive: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != tar.TypeRegA {
			continue
		}

		path, ok := normalizePath(hdr.Name)
		if !ok {
			return nil, &ErrInvalidPath{Name: hdr.Name}
		}
		if path == "" {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("tarextract: read %q: %w", hdr.Name, err)
		}

		mode := gitobj.ModeFile
		if hdr.Mode&0o111 != 0 {
			mode = gitobj.ModeExecutable
		}

		edits = append(edits, PathEdit{Path: path, Data: data, Mode: mode})
	}

	if len(edits) == 0 {
		return nil, ErrEmptyTar
	}
	return edits, nil
}

// normalizePath strips a leading "./", collapses repeated "/", and
// rejects ".." components, absolute paths, and trailing slashes. It
// returns ("", true) for a path that normalizes to nothing (a bare "."
// or "./" directory marker), which the caller skips.
func normalizePath(name string) (string, bool) {
	name = strings.TrimPrefix(name, "./")
	for strings.Contains(name, "//") {
		name = strings.ReplaceAll(name, "//", "/")
	}
	if name == "" || name == "." {
		return "", true
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return "", false
	}
	if strings.HasSuffix(name, "/") {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	return name, true
}
