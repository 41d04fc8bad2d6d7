package gitobj

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/plumbing"
)

// Store reads and writes git objects against an object-store adapter,
// through a per-request ristretto cache. Every request constructs its own
// Store; nothing here is shared across requests.
//
// ristretto's Set is asynchronous and admission-controlled: a Set can be
// dropped, and a Get immediately after a Set is not guaranteed to see it.
// So the cache is a read-through cache for Fetch only, never the sole
// holder of data Flush needs to write. Every object Add produces is
// also held, directly, in dirty until Flush confirms it durable.
type Store struct {
	adapter objstore.Adapter
	prefix  string // key prefix objects are read from and written under, e.g. "dest/"
	cache   *ristretto.Cache[plumbing.Hash, Object]

	mu    sync.Mutex
	dirty []dirtyObject
}

// dirtyObject pairs an added object with its id so Flush never has to
// recover the object from the cache.
type dirtyObject struct {
	sha plumbing.Hash
	obj Object
}

// NewStore builds a Store that reads and writes loose objects under
// prefix via adapter.
func NewStore(adapter objstore.Adapter, prefix string) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[plumbing.Hash, Object]{
		NumCounters: 10_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("gitobj: unable to initialize object cache: %w", err)
	}
	return &Store{adapter: adapter, prefix: prefix, cache: cache}, nil
}

func (s *Store) key(sha plumbing.Hash) string {
	hex := sha.String()
	return path.Join(s.prefix, "objects", hex[:2], hex[2:])
}

// Cached returns an object only if it is already present in the
// in-process cache; it never touches the object store.
func (s *Store) Cached(sha plumbing.Hash) (Object, bool) {
	return s.cache.Get(sha)
}

// Fetch returns the object named by sha, reading through the object
// store and populating the cache on success. If the loose object's
// recomputed hash does not match sha, the object is treated as absent:
// the mismatch is logged as a warning and a hash-mismatch error is
// returned instead of silently trusting corrupted input.
func (s *Store) Fetch(ctx context.Context, sha plumbing.Hash) (Object, error) {
	if obj, ok := s.Cached(sha); ok {
		return obj, nil
	}

	raw, err := s.adapter.Get(ctx, s.key(sha))
	if err != nil {
		if err == objstore.ErrNotFound {
			return nil, plumbing.NoSuchObject(sha)
		}
		return nil, fmt.Errorf("gitobj: fetch %s: %w", sha, err)
	}

	r, err := NewObjectReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	typ, size, err := r.Header()
	if err != nil {
		return nil, err
	}

	var obj Object
	switch typ {
	case BlobObjectType:
		obj = new(Blob)
	case TreeObjectType:
		obj = new(Tree)
	case CommitObjectType:
		obj = new(Commit)
	case TagObjectType:
		obj = new(Tag)
	default:
		return nil, fmt.Errorf("gitobj: unknown object type decoding %s", sha)
	}

	if _, err := obj.Decode(sha, r, size); err != nil {
		return nil, fmt.Errorf("gitobj: decode %s: %w", sha, err)
	}

	if got := hashObject(obj); got != sha {
		mismatch := &ErrHashMismatch{Want: sha, Got: got}
		logrus.Warnf("%v", mismatch)
		return nil, mismatch
	}

	s.cache.Set(sha, obj, 1)
	return obj, nil
}

// Add computes obj's id, caches it for reads (waiting for the cache to
// apply the Set, so an immediate Cached lookup sees it unless the cache
// dropped it), and retains obj itself in the dirty set so a later Flush
// writes it to the object store. It never touches the object store
// itself.
func (s *Store) Add(obj Object) plumbing.Hash {
	sha := hashObject(obj)
	s.cache.Set(sha, obj, 1)
	s.cache.Wait()

	s.mu.Lock()
	s.dirty = append(s.dirty, dirtyObject{sha: sha, obj: obj})
	s.mu.Unlock()

	return sha
}

// Flush writes every dirty object to the object store, skipping any that
// already exist under this prefix (loose objects are content-addressed,
// so an existing key is already byte-identical). Objects are written in
// the order they were added, which for this pipeline means blobs and
// subtrees always precede anything that references them.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	dirty := s.dirty
	s.dirty = nil
	s.mu.Unlock()

	for _, d := range dirty {
		exists, err := s.adapter.Exists(ctx, s.key(d.sha))
		if err != nil {
			return fmt.Errorf("gitobj: stat %s: %w", d.sha, err)
		}
		if exists {
			continue
		}

		encoded, err := encodeLoose(d.obj)
		if err != nil {
			return fmt.Errorf("gitobj: encode %s: %w", d.sha, err)
		}
		if err := s.adapter.Put(ctx, s.key(d.sha), encoded); err != nil {
			return fmt.Errorf("gitobj: write %s: %w", d.sha, err)
		}
	}
	return nil
}

// hashObject computes the id an object would be stored under, without
// writing anything.
func hashObject(obj Object) plumbing.Hash {
	var payload bytes.Buffer
	n, _ := obj.Encode(&payload)

	w := NewObjectWriter(io.Discard)
	_, _ = w.WriteHeader(obj.Type(), n)
	_, _ = w.Write(payload.Bytes())
	sha := w.Sha()
	_ = w.Close()
	return sha
}

// encodeLoose renders obj as a complete zlib-compressed loose object.
func encodeLoose(obj Object) ([]byte, error) {
	var payload bytes.Buffer
	n, err := obj.Encode(&payload)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	w := NewObjectWriter(&out)
	if _, err := w.WriteHeader(obj.Type(), n); err != nil {
		return nil, err
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ErrHashMismatch is returned by Fetch when a loose object's recomputed
// id does not match the id it was requested by, indicating corrupted or
// tampered storage.
type ErrHashMismatch struct {
	Want, Got plumbing.Hash
}

func (e *ErrHashMismatch) Error() string {
	return fmt.Sprintf("gitobj: hash mismatch: requested %s, computed %s", e.Want, e.Got)
}
