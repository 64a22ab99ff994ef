package backend

import (
	"context"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/secmem"
)

// ageOnlyBackend emits raw age ciphertext with no envelope wrapping, for
// maximum backward compatibility, while still accepting envelopes on input
// (a vault may carry legacy v1/v2 entries from a prior hybrid configuration).
type ageOnlyBackend struct{}

var _ Backend = (*ageOnlyBackend)(nil)

func (b *ageOnlyBackend) EncryptFor(_ context.Context, _ string, plaintext []byte, recipients []vault.Recipient) (string, error) {
	return cipherage.Encrypt(plaintext, recipientPublicIDs(recipients))
}

func (b *ageOnlyBackend) Decrypt(ctx context.Context, secretName, stored string, id *identity.Identity) (*secmem.Bytes, error) {
	return decryptStored(ctx, secretName, stored, id, nil, "")
}
