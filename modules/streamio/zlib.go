package streamio

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

var zlibWriterPool = sync.Pool{
	New: func() any {
		return zlib.NewWriter(io.Discard)
	},
}

// GetZlibWriter returns a *zlib.Writer managed by a sync.Pool, reset to
// write compressed output to w.
//
// After use, and after calling Close to flush any buffered data, the
// writer must be returned via PutZlibWriter.
func GetZlibWriter(w io.Writer) *zlib.Writer {
	z := zlibWriterPool.Get().(*zlib.Writer)
	z.Reset(w)
	return z
}

// PutZlibWriter puts z back into its sync.Pool.
func PutZlibWriter(z *zlib.Writer) {
	zlibWriterPool.Put(z)
}

// ZlibReader holds a pooled decompressing reader, exposed as Reader; it
// is drawn with GetZlibReader and returned with PutZlibReader.
type ZlibReader struct {
	Reader io.ReadCloser
}

var zlibReaderPool sync.Pool

// GetZlibReader returns a ZlibReader decoding r. It reuses a pooled
// decompressor when one is available, falling back to allocating a new
// one otherwise.
//
// After use, it must be returned via PutZlibReader.
func GetZlibReader(r io.Reader) (*ZlibReader, error) {
	if v := zlibReaderPool.Get(); v != nil {
		zr := v.(*ZlibReader)
		if resetter, ok := zr.Reader.(zlib.Resetter); ok {
			if err := resetter.Reset(r, nil); err == nil {
				return zr, nil
			}
		}
	}
	rc, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &ZlibReader{Reader: rc}, nil
}

// PutZlibReader closes z's underlying reader and returns it to its
// sync.Pool.
func PutZlibReader(z *ZlibReader) {
	if z == nil || z.Reader == nil {
		return
	}
	_ = z.Reader.Close()
	zlibReaderPool.Put(z)
}
