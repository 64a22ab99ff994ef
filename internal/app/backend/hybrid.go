package backend

import (
	"context"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/envelope"
	"github.com/cellarvault/cellar/internal/app/kms"
	"github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/secmem"
)

// hybridBackend produces age ciphertext for all recipients AND KMS
// ciphertext for the same plaintext, packaged as an Envelope v2. On decrypt,
// the age path is tried first when an identity is present; otherwise, or on
// age failure, the KMS path is tried.
type hybridBackend struct {
	adapter      kms.Adapter
	resourceName string
	provider     string
}

var _ Backend = (*hybridBackend)(nil)

func (b *hybridBackend) EncryptFor(ctx context.Context, secretName string, plaintext []byte, recipients []vault.Recipient) (string, error) {
	ageCiphertext, err := cipherage.Encrypt(plaintext, recipientPublicIDs(recipients))
	if err != nil {
		return "", err
	}

	kmsCiphertext, err := b.adapter.Encrypt(ctx, plaintext, b.resourceName, secretName)
	if err != nil {
		return "", err
	}

	return envelope.EncodeV2(envelope.Record{
		Age:      ageCiphertext,
		Kms:      kmsCiphertext,
		Provider: b.provider,
	})
}

func (b *hybridBackend) Decrypt(ctx context.Context, secretName, stored string, id *identity.Identity) (*secmem.Bytes, error) {
	return decryptStored(ctx, secretName, stored, id, b.adapter, b.resourceName)
}
