// Package kms implements the KMS Adapter: provider-tagged encrypt/decrypt
// calls against an external key-management service, keyed by a
// provider-specific resource name, with the provider auto-detected from the
// resource name's shape.
package kms

import (
	"context"
	"strings"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// ProviderKind identifies which cloud KMS a resource name refers to.
type ProviderKind int

const (
	// ProviderAWS is Amazon KMS, resource names shaped arn:aws:kms:…
	ProviderAWS ProviderKind = iota
	// ProviderGCP is Google Cloud KMS, resource names shaped projects/…/cryptoKeys/…
	ProviderGCP
)

func (p ProviderKind) String() string {
	switch p {
	case ProviderAWS:
		return "aws"
	case ProviderGCP:
		return "gcp"
	default:
		return "unknown"
	}
}

// DetectProvider determines the KMS provider from a resource name's prefix.
func DetectProvider(resourceName string) (ProviderKind, error) {
	switch {
	case strings.HasPrefix(resourceName, "arn:aws:kms:"):
		return ProviderAWS, nil
	case strings.HasPrefix(resourceName, "projects/") && strings.Contains(resourceName, "/cryptoKeys/"):
		return ProviderGCP, nil
	default:
		return 0, vaulterr.New(vaulterr.UnsupportedProvider, "unrecognized KMS resource name shape: "+resourceName)
	}
}

// Adapter performs encrypt/decrypt calls against one cloud KMS. secretName is
// bound as the call's encryption context / additional authenticated data, so
// a ciphertext can never be silently substituted for a different secret.
type Adapter interface {
	Encrypt(ctx context.Context, plaintext []byte, resourceName, secretName string) (ciphertextB64 string, err error)
	Decrypt(ctx context.Context, ciphertextB64 string, resourceName, secretName string) (plaintext []byte, err error)
}

// New returns the Adapter for the given provider, or BackendNotCompiled if
// the corresponding build tag (awskms/gcpkms) was not set.
func New(ctx context.Context, provider ProviderKind) (Adapter, error) {
	switch provider {
	case ProviderAWS:
		return newAWSAdapter(ctx)
	case ProviderGCP:
		return newGCPAdapter(ctx)
	default:
		return nil, vaulterr.New(vaulterr.UnsupportedProvider, "unknown provider kind")
	}
}
