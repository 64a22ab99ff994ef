// Package backend implements the Cipher Backend Dispatch: age-only, hybrid
// (age+KMS), or GPG mode selected once at vault-open time from the vault's
// configuration, presenting a uniform contract to the Vault Engine. This is
// a tagged variant, not a class hierarchy: three small structs implement one
// interface, selected by Select.
package backend

import (
	"context"
	"strings"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/envelope"
	"github.com/cellarvault/cellar/internal/app/kms"
	"github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/secmem"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// Backend is the uniform contract the Vault Engine drives regardless of
// which cipher mode is active.
type Backend interface {
	// EncryptFor encrypts plaintext for the given recipient set, binding
	// secretName where the active mode supports authenticated binding.
	EncryptFor(ctx context.Context, secretName string, plaintext []byte, recipients []vault.Recipient) (stored string, err error)
	// Decrypt recovers plaintext from a stored secret's value, wrapped in a
	// zeroizing container. id may be nil (hybrid mode can fall through to the
	// KMS path without a local identity).
	Decrypt(ctx context.Context, secretName string, stored string, id *identity.Identity) (plaintext *secmem.Bytes, err error)
}

// Select chooses a Backend from the vault's current configuration and
// recipient set. KMS presence selects hybrid; otherwise, if every recipient
// looks like a GPG identifier (email or 40-character hex fingerprint), GPG
// is selected; otherwise age-only.
func Select(ctx context.Context, v *vault.Vault) (Backend, error) {
	if v.HybridEnabled() {
		provider, err := kms.DetectProvider(v.KMS.Key)
		if err != nil {
			return nil, err
		}
		adapter, err := kms.New(ctx, provider)
		if err != nil {
			return nil, err
		}
		return &hybridBackend{adapter: adapter, resourceName: v.KMS.Key, provider: provider.String()}, nil
	}

	if len(v.Recipients) > 0 && allGPGStyle(v.Recipients) {
		return &gpgBackend{}, nil
	}

	return &ageOnlyBackend{}, nil
}

func allGPGStyle(recipients map[string]string) bool {
	for _, id := range recipients {
		if !looksLikeGPGIdentifier(id) {
			return false
		}
	}
	return true
}

func looksLikeGPGIdentifier(id string) bool {
	if strings.Contains(id, "@") {
		return true
	}
	if len(id) == 40 && isHex(id) {
		return true
	}
	return false
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// decryptStored implements the shared envelope-aware decrypt logic used by
// both age-only and hybrid backends. kmsAdapter/resourceName are nil/empty
// for age-only.
func decryptStored(ctx context.Context, secretName, stored string, id *identity.Identity, kmsAdapter kms.Adapter, resourceName string) (*secmem.Bytes, error) {
	if envelope.IsV2(stored) {
		rec, err := envelope.DecodeV2(stored)
		if err != nil {
			return nil, err
		}

		var ageErr error
		if id != nil && rec.Age != "" {
			pt, err := cipherage.Decrypt(rec.Age, id.PrivateKeyString())
			if err == nil {
				return pt, nil
			}
			ageErr = err
		}

		if rec.Kms != "" && kmsAdapter != nil {
			raw, err := kmsAdapter.Decrypt(ctx, rec.Kms, resourceName, secretName)
			if err == nil {
				return secmem.New(raw), nil
			}
			if ageErr != nil {
				return nil, ageErr
			}
			return nil, err
		}

		if ageErr != nil {
			return nil, ageErr
		}
		return nil, vaulterr.New(vaulterr.NoMatchingIdentity, "no usable decryption path in v2 envelope")
	}

	// Bare armored age ciphertext: either true raw, or the outer layer of a
	// legacy v1 envelope. Both require an age identity to open.
	if id == nil {
		return nil, vaulterr.New(vaulterr.NoMatchingIdentity, "no identity available to open age ciphertext")
	}

	pt, err := cipherage.Decrypt(stored, id.PrivateKeyString())
	if err != nil {
		return nil, err
	}

	if kmsCiphertextB64, ok := envelope.ParseV1Inner(pt.Bytes()); ok {
		pt.Destroy()
		if kmsAdapter == nil {
			return nil, vaulterr.New(vaulterr.BackendNotCompiled, "v1 envelope requires KMS but no KMS backend is configured")
		}
		raw, err := kmsAdapter.Decrypt(ctx, kmsCiphertextB64, resourceName, secretName)
		if err != nil {
			return nil, err
		}
		return secmem.New(raw), nil
	}

	return pt, nil
}

func recipientPublicIDs(recipients []vault.Recipient) []string {
	ids := make([]string, len(recipients))
	for i, r := range recipients {
		ids[i] = r.PublicIdentifier
	}
	return ids
}
