package gitobj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/streamio"
)

// ObjectWriter writes a loose object's canonical "<type> <size>\0<payload>"
// framing to an underlying zlib stream, hashing the uncompressed framing
// as it goes so the resulting object id is available once writing is
// done.
type ObjectWriter struct {
	zw     *zlib.Writer
	hasher plumbing.Hasher
}

// NewObjectWriter returns an ObjectWriter that writes a zlib-compressed
// loose object to w.
func NewObjectWriter(w io.Writer) *ObjectWriter {
	return &ObjectWriter{
		zw:     streamio.GetZlibWriter(w),
		hasher: plumbing.NewHasher(),
	}
}

// WriteHeader writes the "<type> <size>\0" loose-object header.
func (o *ObjectWriter) WriteHeader(typ ObjectType, size int64) (int, error) {
	return o.Write([]byte(typ.String() + " " + strconv.FormatInt(size, 10) + "\x00"))
}

func (o *ObjectWriter) Write(p []byte) (int, error) {
	_, _ = o.hasher.Write(p)
	return o.zw.Write(p)
}

// Sha returns the object id of everything written so far.
func (o *ObjectWriter) Sha() plumbing.Hash {
	return o.hasher.Sum()
}

// Close flushes the zlib stream and returns the writer to its pool. The
// ObjectWriter must not be used again afterward.
func (o *ObjectWriter) Close() error {
	err := o.zw.Close()
	streamio.PutZlibWriter(o.zw)
	return err
}

// ObjectReader reads a loose object's zlib-compressed framing, exposing
// the parsed header and the remaining payload as an io.Reader.
type ObjectReader struct {
	z      *streamio.ZlibReader
	br     *bufio.Reader
	typ    ObjectType
	size   int64
	header bool
}

// NewObjectReader wraps r, an already-opened stream of zlib-compressed
// loose-object bytes (as returned by the object-store adapter's Get).
func NewObjectReader(r io.Reader) (*ObjectReader, error) {
	z, err := streamio.GetZlibReader(r)
	if err != nil {
		return nil, fmt.Errorf("gitobj: not a valid loose object: %w", err)
	}
	return &ObjectReader{
		z:  z,
		br: bufio.NewReader(z.Reader),
	}, nil
}

// Header parses (once) and returns the object's type and payload size.
func (o *ObjectReader) Header() (ObjectType, int64, error) {
	if o.header {
		return o.typ, o.size, nil
	}

	typStr, err := o.br.ReadString(' ')
	if err != nil {
		return 0, 0, fmt.Errorf("gitobj: malformed object header: %w", err)
	}
	typ, err := ParseObjectType(typStr[:len(typStr)-1])
	if err != nil {
		return 0, 0, err
	}

	sizeStr, err := o.br.ReadString(0)
	if err != nil {
		return 0, 0, fmt.Errorf("gitobj: malformed object header: %w", err)
	}
	size, err := strconv.ParseInt(sizeStr[:len(sizeStr)-1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("gitobj: malformed object size: %w", err)
	}

	o.typ, o.size, o.header = typ, size, true
	return typ, size, nil
}

func (o *ObjectReader) Read(p []byte) (int, error) {
	return o.br.Read(p)
}

// Close returns the underlying zlib reader to its pool.
func (o *ObjectReader) Close() error {
	streamio.PutZlibReader(o.z)
	return nil
}
