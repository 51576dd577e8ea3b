// Package store persists the documents the service exposes as HTTP
// resources.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound reports the addressed document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored resource representation.
type Document struct {
	ID          string
	ContentType string
	Body        []byte
	ETag        string
	UpdatedAt   time.Time
}

// Store is the persistence surface document resources are served from.
// Put stamps ETag and UpdatedAt and reports whether the document was
// newly created. Get and Delete return ErrNotFound for unknown IDs.
type Store interface {
	Get(ctx context.Context, id string) (*Document, error)
	Put(ctx context.Context, doc *Document) (created bool, err error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Document, error)
	Close() error
}

// ETagFor derives a document's entity tag from its body.
func ETagFor(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}

// Timestamp is the store clock. Last-modified comparisons happen at
// HTTP date precision, so stamps carry whole seconds only.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
