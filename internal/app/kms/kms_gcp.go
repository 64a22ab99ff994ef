//go:build gcpkms

package kms

import (
	"context"
	"encoding/base64"

	kmsapi "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

type gcpAdapter struct {
	client *kmsapi.KeyManagementClient
}

func newGCPAdapter(ctx context.Context) (Adapter, error) {
	client, err := kmsapi.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KmsUnavailable, "create GCP KMS client", err)
	}
	return &gcpAdapter{client: client}, nil
}

func (a *gcpAdapter) Encrypt(ctx context.Context, plaintext []byte, resourceName, secretName string) (string, error) {
	resp, err := a.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:                        resourceName,
		Plaintext:                   plaintext,
		AdditionalAuthenticatedData: []byte(secretName),
	})
	if err != nil {
		return "", mapGCPError(err)
	}
	return base64.StdEncoding.EncodeToString(resp.Ciphertext), nil
}

func (a *gcpAdapter) Decrypt(ctx context.Context, ciphertextB64, resourceName, secretName string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KmsCorrupt, "decode KMS ciphertext base64", err)
	}
	resp, err := a.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:                        resourceName,
		Ciphertext:                  blob,
		AdditionalAuthenticatedData: []byte(secretName),
	})
	if err != nil {
		return nil, mapGCPError(err)
	}
	return resp.Plaintext, nil
}

func mapGCPError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return vaulterr.Wrap(vaulterr.KmsUnavailable, "GCP KMS call failed", err)
	}
	switch st.Code() {
	case codes.PermissionDenied, codes.Unauthenticated:
		return vaulterr.Wrap(vaulterr.KmsAccessDenied, "GCP KMS denied access", err)
	case codes.NotFound:
		return vaulterr.Wrap(vaulterr.KmsAccessDenied, "GCP KMS key not found", err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return vaulterr.Wrap(vaulterr.KmsCorrupt, "GCP KMS rejected request", err)
	default:
		return vaulterr.Wrap(vaulterr.KmsUnavailable, "GCP KMS call failed", err)
	}
}
