// Package gitobj implements the git loose-object format: blob, tree,
// commit and tag objects, their canonical encoding, and a Store that
// reads and writes them through an object-store adapter.
package gitobj

import (
	"fmt"
	"io"

	"github.com/antgroup/gitsync/modules/plumbing"
)

// ObjectType identifies one of the four git object kinds.
type ObjectType int8

const (
	BlobObjectType ObjectType = iota
	TreeObjectType
	CommitObjectType
	TagObjectType
)

func (t ObjectType) String() string {
	switch t {
	case BlobObjectType:
		return "blob"
	case TreeObjectType:
		return "tree"
	case CommitObjectType:
		return "commit"
	case TagObjectType:
		return "tag"
	}
	return "unknown"
}

func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "blob":
		return BlobObjectType, nil
	case "tree":
		return TreeObjectType, nil
	case "commit":
		return CommitObjectType, nil
	case "tag":
		return TagObjectType, nil
	}
	return 0, fmt.Errorf("gitobj: unknown object type: %q", s)
}

// Object is satisfied by Blob, Tree, Commit and Tag.
type Object interface {
	Type() ObjectType
	// Encode writes the object's canonical payload (without the
	// "<type> <len>\0" header) to w and returns the number of bytes
	// written.
	Encode(w io.Writer) (int64, error)
	// Decode reads size bytes of canonical payload from r and populates
	// the receiver. The hash passed in is the object's own id, already
	// known to the caller from the loose-object header/verification.
	Decode(id plumbing.Hash, r io.Reader, size int64) (int, error)
}

// UnexpectedObjectType is returned when an object is decoded expecting
// one type but the loose-object header declares another.
type UnexpectedObjectType struct {
	Got, Wanted ObjectType
}

func (e *UnexpectedObjectType) Error() string {
	return fmt.Sprintf("gitobj: unexpected object type: got %q, wanted %q", e.Got, e.Wanted)
}
