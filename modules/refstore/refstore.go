// Package refstore loads and stores git references against an
// object-store adapter: loose refs (one key per ref name) plus an
// optional packed-refs table, ported from the teacher's local-filesystem
// ref directory walk to object-store list/get, since there is no local
// filesystem to walk.
package refstore

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/modules/plumbing"
)

const listPageSize = 1000

// Store is an in-memory table of references loaded from, and writable
// back to, one object-store key prefix.
type Store struct {
	adapter objstore.Adapter
	prefix  string

	refs   []*plumbing.Reference
	byName map[plumbing.ReferenceName]*plumbing.Reference
	head   *plumbing.Reference
}

// New returns an empty Store bound to prefix.
func New(adapter objstore.Adapter, prefix string) *Store {
	return &Store{
		adapter: adapter,
		prefix:  prefix,
		byName:  make(map[plumbing.ReferenceName]*plumbing.Reference),
	}
}

func (s *Store) add(ref *plumbing.Reference) {
	if _, ok := s.byName[ref.Name()]; ok {
		return
	}
	s.refs = append(s.refs, ref)
	s.byName[ref.Name()] = ref
}

// Load populates the Store from its bound prefix: loose refs under
// "refs/" (paginated), then packed-refs for anything not already found
// loose, then HEAD.
func (s *Store) Load(ctx context.Context) error {
	if err := s.loadLooseRefs(ctx); err != nil {
		return fmt.Errorf("refstore: load loose refs: %w", err)
	}
	if err := s.loadPackedRefs(ctx); err != nil {
		return fmt.Errorf("refstore: load packed-refs: %w", err)
	}
	if err := s.loadHead(ctx); err != nil {
		return fmt.Errorf("refstore: load HEAD: %w", err)
	}
	return nil
}

func (s *Store) loadLooseRefs(ctx context.Context) error {
	prefix := s.prefix + "refs/"
	cursor := ""
	for {
		page, err := s.adapter.List(ctx, prefix, cursor, listPageSize)
		if err != nil {
			return err
		}
		for _, key := range page.Keys {
			data, err := s.adapter.Get(ctx, key)
			if err != nil {
				if err == objstore.ErrNotFound {
					continue
				}
				return err
			}
			name := strings.TrimPrefix(key, s.prefix)
			line := strings.TrimSpace(string(data))
			s.add(plumbing.NewReferenceFromStrings(name, line))
		}
		if page.Cursor == "" {
			return nil
		}
		cursor = page.Cursor
	}
}

func (s *Store) loadPackedRefs(ctx context.Context) error {
	data, err := s.adapter.Get(ctx, s.prefix+"packed-refs")
	if err == objstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '#', '^':
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		s.add(plumbing.NewReferenceFromStrings(fields[1], fields[0]))
	}
	return scanner.Err()
}

func (s *Store) loadHead(ctx context.Context) error {
	data, err := s.adapter.Get(ctx, s.prefix+"HEAD")
	if err == objstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	line := strings.TrimSpace(string(data))
	s.head = plumbing.NewReferenceFromStrings(string(plumbing.HEAD), line)
	return nil
}

// Set installs or overwrites ref in memory; it is not written to the
// object store until Store is called. An overwritten ref moves to the
// end of the write order, so Store writes a just-advanced ref (e.g.
// the destination branch) last and minimizes the window between the
// rest of the prefix landing and the ref that publishes it.
func (s *Store) Set(ref *plumbing.Reference) {
	s.byName[ref.Name()] = ref
	for i, existing := range s.refs {
		if existing.Name() == ref.Name() {
			s.refs = append(s.refs[:i], s.refs[i+1:]...)
			break
		}
	}
	s.refs = append(s.refs, ref)
}

// Get returns the in-memory reference named name, if any.
func (s *Store) Get(name plumbing.ReferenceName) (*plumbing.Reference, bool) {
	ref, ok := s.byName[name]
	return ref, ok
}

// Empty reports whether no ref at all (loose, packed, or HEAD) was found
// under the bound prefix, i.e. this is a brand new, uninitialized
// repository.
func (s *Store) Empty() bool {
	return len(s.refs) == 0 && s.head == nil
}

// Resolve implements this system's base-ref resolution order: try the
// name as a tag, then as a branch, then as given verbatim, returning the
// hash of the first match found.
func (s *Store) Resolve(ref string) (plumbing.Hash, bool) {
	candidates := []plumbing.ReferenceName{
		plumbing.NewTagReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
		plumbing.ReferenceName(ref),
	}
	for _, name := range candidates {
		if r, ok := s.byName[name]; ok {
			if h, ok := s.dereference(r); ok {
				return h, true
			}
		}
	}
	return plumbing.ZeroHash, false
}

func (s *Store) dereference(ref *plumbing.Reference) (plumbing.Hash, bool) {
	seen := make(map[plumbing.ReferenceName]bool)
	for {
		switch ref.Type() {
		case plumbing.HashReference:
			return ref.Hash(), true
		case plumbing.SymbolicReference:
			if seen[ref.Name()] {
				return plumbing.ZeroHash, false
			}
			seen[ref.Name()] = true
			next, ok := s.byName[ref.Target()]
			if !ok {
				return plumbing.ZeroHash, false
			}
			ref = next
		default:
			return plumbing.ZeroHash, false
		}
	}
}

// Store writes every in-memory reference to its own loose-ref key, plus
// HEAD if set. packed-refs is never rewritten: newly created refs always
// land as loose refs, which override packed entries on the next Load.
func (s *Store) Store(ctx context.Context) error {
	for _, ref := range s.refs {
		if err := s.writeRef(ctx, s.prefix+ref.Name().String(), ref); err != nil {
			return fmt.Errorf("refstore: write %s: %w", ref.Name(), err)
		}
	}
	if s.head != nil {
		if err := s.writeRef(ctx, s.prefix+"HEAD", s.head); err != nil {
			return fmt.Errorf("refstore: write HEAD: %w", err)
		}
	}
	return nil
}

func (s *Store) writeRef(ctx context.Context, key string, ref *plumbing.Reference) error {
	content := ref.Strings()[1] + "\n"
	return s.adapter.Put(ctx, key, []byte(content))
}
