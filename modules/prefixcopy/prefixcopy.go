// Package prefixcopy guards and performs the bulk copy of every object
// under a base repository's key prefix into a fresh destination prefix.
package prefixcopy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/antgroup/gitsync/modules/objstore"
)

const (
	listPageSize   = 1000
	defaultWorkers = 8
)

// ErrPrefixNotEmpty is returned by EnsureEmpty when the destination
// prefix already has at least one object under it.
var ErrPrefixNotEmpty = errors.New("prefixcopy: destination prefix is not empty")

// ErrCopyFailed wraps the underlying error from a failed Copy, along with
// how many keys had already been copied when it failed.
type ErrCopyFailed struct {
	Copied int
	Err    error
}

func (e *ErrCopyFailed) Error() string {
	return fmt.Sprintf("prefixcopy: copy failed after %d keys: %v", e.Copied, e.Err)
}

func (e *ErrCopyFailed) Unwrap() error { return e.Err }

// EnsureEmpty returns ErrPrefixNotEmpty if any object already exists
// under prefix.
func EnsureEmpty(ctx context.Context, adapter objstore.Adapter, prefix string) error {
	page, err := adapter.List(ctx, prefix, "", 1)
	if err != nil {
		return fmt.Errorf("prefixcopy: list %s: %w", prefix, err)
	}
	if len(page.Keys) > 0 {
		return ErrPrefixNotEmpty
	}
	return nil
}

// Copy duplicates every object under src to the equivalent key under dst,
// fanning the individual Copy calls out across a bounded worker pool.
// Grounded in the teacher's upload worker-pool pattern (a bounded
// channel of work fed to N goroutines), adapted here from an upload
// channel to a copy channel since x/sync/errgroup's SetLimit expresses
// the same bound more directly for this shape of work.
//
// Not transactional: if a key fails partway through, the number of keys
// already copied is reported via ErrCopyFailed so the caller can decide
// what to do; everything that did copy remains in place.
func Copy(ctx context.Context, adapter objstore.Adapter, src, dst string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers)

	var copied atomic.Int32
	cursor := ""
	for {
		page, err := adapter.List(ctx, src, cursor, listPageSize)
		if err != nil {
			_ = g.Wait()
			return int(copied.Load()), fmt.Errorf("prefixcopy: list %s: %w", src, err)
		}

		for _, key := range page.Keys {
			key := key
			g.Go(func() error {
				suffix := strings.TrimPrefix(key, src)
				if err := adapter.Copy(gctx, key, dst+suffix); err != nil {
					return fmt.Errorf("copy %s: %w", key, err)
				}
				copied.Add(1)
				return nil
			})
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	if err := g.Wait(); err != nil {
		return int(copied.Load()), &ErrCopyFailed{Copied: int(copied.Load()), Err: err}
	}
	return int(copied.Load()), nil
}
