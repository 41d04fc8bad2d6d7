package gitobj

import (
	"io"

	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/streamio"
)

// Blob is the content of a single file.
type Blob struct {
	Data []byte
}

func (b *Blob) Type() ObjectType { return BlobObjectType }

func (b *Blob) Encode(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}

func (b *Blob) Decode(_ plumbing.Hash, r io.Reader, size int64) (int, error) {
	data, err := streamio.ReadMax(r, size)
	if err != nil {
		return 0, err
	}
	b.Data = data
	return len(data), nil
}
