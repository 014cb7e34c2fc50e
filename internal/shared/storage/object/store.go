package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open for a key with no stored object.
var ErrNotFound = errors.New("object not found")

// ObjectStore holds uploaded originals and the text extracted from them.
type ObjectStore interface {
	// Save stores r under a generated key in the owner's namespace and returns
	// the key, the byte count and the sniffed content type.
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey writes derived artifacts (extracted text) next to an original.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, storageKey string) error
}
