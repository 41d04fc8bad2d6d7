package gitobj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/antgroup/gitsync/modules/plumbing"
)

// TreeEntry is one line of a tree object: a name, its mode, and the id of
// the blob or subtree it points at.
type TreeEntry struct {
	Name string
	Mode FileMode
	Hash plumbing.Hash
}

// Tree is a directory listing. Entries must already be in git's
// canonical order (byte-lexicographic on Name, subtrees compared as if
// their name carried a trailing "/") before being passed to Encode; the
// tree builder is responsible for producing that order.
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Type() ObjectType { return TreeObjectType }

func (t *Tree) Encode(w io.Writer) (int64, error) {
	var written int64
	for _, e := range t.Entries {
		line := strconv.FormatUint(uint64(e.Mode), 8) + " " + e.Name + "\x00"
		n, err := io.WriteString(w, line)
		written += int64(n)
		if err != nil {
			return written, err
		}
		n2, err := w.Write(e.Hash[:])
		written += int64(n2)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (t *Tree) Decode(_ plumbing.Hash, r io.Reader, size int64) (int, error) {
	br := bufio.NewReaderSize(r, 4096)
	var read int

	for read < int(size) {
		modeStr, err := br.ReadString(' ')
		if err != nil {
			return read, fmt.Errorf("gitobj: malformed tree entry mode: %w", err)
		}
		read += len(modeStr)
		mode, err := strconv.ParseUint(modeStr[:len(modeStr)-1], 8, 32)
		if err != nil {
			return read, fmt.Errorf("gitobj: malformed tree entry mode %q: %w", modeStr, err)
		}

		name, err := br.ReadString(0)
		if err != nil {
			return read, fmt.Errorf("gitobj: malformed tree entry name: %w", err)
		}
		read += len(name)

		var raw [plumbing.HASH_DIGEST_SIZE]byte
		if _, err := io.ReadFull(br, raw[:]); err != nil {
			return read, fmt.Errorf("gitobj: truncated tree entry hash: %w", err)
		}
		read += plumbing.HASH_DIGEST_SIZE

		t.Entries = append(t.Entries, TreeEntry{
			Name: name[:len(name)-1],
			Mode: FileMode(mode),
			Hash: plumbing.Hash(raw),
		})
	}
	return read, nil
}
