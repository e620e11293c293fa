// Package blob stores opaque document bytes under server-generated keys.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/errs"
)

// Store persists and retrieves blobs. Missing keys yield errs.ErrNotFound;
// backend failures wrap errs.ErrStorage.
type Store interface {
	// Put writes data under key, replacing nothing else.
	Put(ctx context.Context, key string, data []byte) error
	// Get reads the full blob.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a blob; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewKey returns a fresh collision-resistant key of the form
// documents/YYYY/MM/DD/<uuid>.pdf.
func NewKey(now time.Time) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return path.Join("documents", now.UTC().Format("2006/01/02"), id.String()+".pdf"), nil
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return errs.Invalid("bad blob key %q", key)
	}
	if path.Clean(key) != key {
		return errs.Invalid("bad blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return errs.Invalid("bad blob key %q", key)
		}
	}
	return nil
}

func storageErr(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %v", op, key, errs.ErrStorage, err)
}
