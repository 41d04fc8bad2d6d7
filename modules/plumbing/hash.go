package plumbing

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
)

const (
	HASH_DIGEST_SIZE = 20
)

const (
	// EMPTY_BLOB is the SHA-1 of a zero-length blob object.
	EMPTY_BLOB = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	// EMPTY_TREE is the SHA-1 of a tree object with no entries.
	EMPTY_TREE = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
)

// Hash is a git object id: the SHA-1 digest of an object's canonical form.
type Hash [HASH_DIGEST_SIZE]byte

// ZeroHash is Hash with value zero
var ZeroHash Hash

// NewHash return a new Hash from a hexadecimal hash representation
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)

	var h Hash
	copy(h[:], b)

	return h
}

func (h Hash) IsZero() bool {
	var empty Hash
	return h == empty
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Hasher wraps the hash algorithm used to derive git object ids: SHA-1,
// as mandated by the loose-object data model.
type Hasher struct {
	hash.Hash
}

func NewHasher() Hasher {
	return Hasher{Hash: sha1.New()}
}

func (h Hasher) Sum() (hash Hash) {
	copy(hash[:], h.Hash.Sum(nil))
	return
}
