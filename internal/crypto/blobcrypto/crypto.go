// Package blobcrypto contains the AEAD primitives used to encrypt stored documents at rest.
package blobcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeyLen is the master and derived key size.
const KeyLen = chacha20poly1305.KeySize

// ErrShortBlob indicates ciphertext shorter than a nonce.
var ErrShortBlob = errors.New("blob too short")

// DeriveKey derives a per-object key via HKDF-SHA256 using the object key as info.
func DeriveKey(master []byte, objectKey string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(objectKey))
	key := make([]byte, KeyLen)
	_, err := r.Read(key)
	return key, err
}

// Seal encrypts plaintext with XChaCha20-Poly1305; output is nonce||ciphertext.
func Seal(key, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open decrypts a Seal output with the same AAD.
func Open(key, aad, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrShortBlob
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	return aead.Open(nil, nonce, ct, aad)
}
