// Package commitassemble builds a commit object pointing at a rebuilt
// tree, writes it to the object store, and advances the target branch
// ref to it.
package commitassemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antgroup/gitsync/modules/gitobj"
	"github.com/antgroup/gitsync/modules/plumbing"
	"github.com/antgroup/gitsync/modules/refstore"
)

// Identity is the author and committer attributed to every commit this
// pipeline creates. Unlike a normal git commit, author and committer are
// always the same: there is no separate human operator in the loop.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ErrIncompleteIdentity is returned by Create when identity is missing a
// name or email.
var ErrIncompleteIdentity = errors.New("commitassemble: identity requires both name and email")

// FlushError wraps a failure writing the commit (and whatever it
// references) to the object store, distinct from a ref-update failure so
// callers can report the two with different error codes.
type FlushError struct{ Err error }

func (e *FlushError) Error() string { return fmt.Sprintf("commitassemble: flush: %v", e.Err) }
func (e *FlushError) Unwrap() error { return e.Err }

// RefUpdateError wraps a failure persisting the advanced ref, which by
// construction only ever happens after FlushError would already have
// fired, so if this is returned the new objects are durably stored.
type RefUpdateError struct{ Err error }

func (e *RefUpdateError) Error() string { return fmt.Sprintf("commitassemble: ref update: %v", e.Err) }
func (e *RefUpdateError) Unwrap() error { return e.Err }

// Create builds a commit with the given tree and parent (no parent if
// parent.IsZero()), attributed to identity at the current time, sets
// branch to point at it in refs, and returns the new commit's id.
//
// The commit message is normalized to end in exactly one trailing
// newline, matching git's own convention and the reference
// implementation's create_commit.
func Create(ctx context.Context, store *gitobj.Store, refs *refstore.Store, branch plumbing.ReferenceName, parent plumbing.Hash, tree plumbing.Hash, identity Identity, message string, now time.Time) (plumbing.Hash, error) {
	if identity.Name == "" || identity.Email == "" {
		return plumbing.ZeroHash, ErrIncompleteIdentity
	}

	sig := gitobj.Signature{Name: identity.Name, Email: identity.Email, When: now}

	var parents []plumbing.Hash
	if !parent.IsZero() {
		parents = []plumbing.Hash{parent}
	}

	commit := &gitobj.Commit{
		TreeHash:  tree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   normalizeMessage(message),
	}

	sha := store.Add(commit)
	// Flush drains every dirty object in store, not just this commit, so
	// this is also where the tree and blobs treebuild staged get written.
	if err := store.Flush(ctx); err != nil {
		return plumbing.ZeroHash, &FlushError{Err: fmt.Errorf("commit %s: %w", sha, err)}
	}

	refs.Set(plumbing.NewHashReference(branch, sha))
	if err := refs.Store(ctx); err != nil {
		return plumbing.ZeroHash, &RefUpdateError{Err: fmt.Errorf("ref %s: %w", branch, err)}
	}

	return sha, nil
}

// normalizeMessage ensures message ends in exactly one trailing newline.
func normalizeMessage(message string) string {
	return strings.TrimRight(message, "\n") + "\n"
}
