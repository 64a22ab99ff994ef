// Package identity holds the decrypt-capability data model: a private key
// held in a zeroizing container plus its corresponding public identifier.
package identity

import "github.com/cellarvault/cellar/internal/pkg/secmem"

// Identity is a private decryption capability plus its public identifier.
type Identity struct {
	PublicIdentifier string
	privateKey       *secmem.Bytes
}

// New wraps raw private key bytes (e.g. an AGE-SECRET-KEY-1… line) alongside
// the identity's public identifier. New takes ownership of key.
func New(publicIdentifier string, key []byte) *Identity {
	return &Identity{
		PublicIdentifier: publicIdentifier,
		privateKey:       secmem.New(key),
	}
}

// PrivateKey returns the raw private key material. Invalid after Destroy.
func (id *Identity) PrivateKey() []byte {
	if id == nil {
		return nil
	}
	return id.privateKey.Bytes()
}

// PrivateKeyString returns the private key as a string, typically the
// AGE-SECRET-KEY-1… encoding. Invalid after Destroy.
func (id *Identity) PrivateKeyString() string {
	if id == nil {
		return ""
	}
	return id.privateKey.String()
}

// Destroy zeroizes the wrapped private key.
func (id *Identity) Destroy() {
	if id == nil {
		return
	}
	id.privateKey.Destroy()
}
