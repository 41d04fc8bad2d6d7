// Package objstore defines the five-operation contract this system needs
// from an S3-compatible object store (get, put, copy, list, exists) and
// a concrete Cloudflare R2 implementation on top of aws-sdk-go-v2.
package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist, and by Copy
// when the source key does not exist. Exists reports a missing key as
// false with a nil error.
var ErrNotFound = errors.New("objstore: object not found")

// Page is one page of a List call.
type Page struct {
	Keys []string
	// Cursor is the opaque token to pass to the next List call to fetch
	// the following page. It is empty when there is no further page.
	Cursor string
}

// Adapter is the storage contract the rest of this system is built
// against. Nothing outside this package knows it is backed by S3/R2.
type Adapter interface {
	// Get returns the full contents of key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key is present, without transferring its
	// body.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes data to key, overwriting any existing content.
	Put(ctx context.Context, key string, data []byte) error
	// Copy duplicates srcKey to dstKey within the same store.
	Copy(ctx context.Context, srcKey, dstKey string) error
	// List returns up to limit keys under prefix, starting after
	// cursor (empty cursor means start from the beginning).
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
}
