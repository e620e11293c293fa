package blob

import (
	"context"
	"fmt"

	"github.com/and161185/signator/internal/crypto/blobcrypto"
	"github.com/and161185/signator/internal/errs"
)

// Sealed encrypts blobs before handing them to the wrapped store.
// Each object uses its own key derived from the master key and the object key,
// which is also bound as AAD so blobs cannot be swapped between keys.
type Sealed struct {
	next   Store
	master []byte
}

// NewSealed wraps next with at-rest encryption.
func NewSealed(next Store, master []byte) (*Sealed, error) {
	if len(master) != blobcrypto.KeyLen {
		return nil, fmt.Errorf("sealed store: master key must be %d bytes", blobcrypto.KeyLen)
	}
	return &Sealed{next: next, master: append([]byte(nil), master...)}, nil
}

// Put encrypts and stores data.
func (s *Sealed) Put(ctx context.Context, key string, data []byte) error {
	k, err := blobcrypto.DeriveKey(s.master, key)
	if err != nil {
		return storageErr("seal", key, err)
	}
	ct, err := blobcrypto.Seal(k, []byte(key), data)
	if err != nil {
		return storageErr("seal", key, err)
	}
	return s.next.Put(ctx, key, ct)
}

// Get loads and decrypts data.
func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	ct, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	k, err := blobcrypto.DeriveKey(s.master, key)
	if err != nil {
		return nil, storageErr("open", key, err)
	}
	pt, err := blobcrypto.Open(k, []byte(key), ct)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, errs.ErrStorage)
	}
	return pt, nil
}

// Delete passes through.
func (s *Sealed) Delete(ctx context.Context, key string) error { return s.next.Delete(ctx, key) }

// Exists passes through.
func (s *Sealed) Exists(ctx context.Context, key string) (bool, error) {
	return s.next.Exists(ctx, key)
}
