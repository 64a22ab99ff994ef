//go:build awskms

package kms

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	vaulterrpkg "github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// encryptionContextKey is the AWS KMS encryption context key the secret name
// is bound under, preventing silent cross-secret ciphertext substitution.
const encryptionContextKey = "cellar-secret"

type awsAdapter struct {
	client *kms.Client
}

func newAWSAdapter(ctx context.Context) (Adapter, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, vaulterrpkg.Wrap(vaulterrpkg.KmsUnavailable, "load AWS credentials", err)
	}
	return &awsAdapter{client: kms.NewFromConfig(cfg)}, nil
}

func (a *awsAdapter) Encrypt(ctx context.Context, plaintext []byte, resourceName, secretName string) (string, error) {
	out, err := a.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(resourceName),
		Plaintext:         plaintext,
		EncryptionContext: map[string]string{encryptionContextKey: secretName},
	})
	if err != nil {
		return "", mapAWSError(err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

func (a *awsAdapter) Decrypt(ctx context.Context, ciphertextB64, resourceName, secretName string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, vaulterrpkg.Wrap(vaulterrpkg.KmsCorrupt, "decode KMS ciphertext base64", err)
	}
	out, err := a.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:             aws.String(resourceName),
		CiphertextBlob:    blob,
		EncryptionContext: map[string]string{encryptionContextKey: secretName},
	})
	if err != nil {
		return nil, mapAWSError(err)
	}
	return out.Plaintext, nil
}

func mapAWSError(err error) error {
	var accessDenied *types.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return vaulterrpkg.Wrap(vaulterrpkg.KmsAccessDenied, "AWS KMS denied access", err)
	}
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return vaulterrpkg.Wrap(vaulterrpkg.KmsAccessDenied, "AWS KMS key not found", err)
	}
	var invalidCiphertext *types.InvalidCiphertextException
	if errors.As(err, &invalidCiphertext) {
		return vaulterrpkg.Wrap(vaulterrpkg.KmsCorrupt, "AWS KMS rejected ciphertext", err)
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return vaulterrpkg.Wrap(vaulterrpkg.KmsUnavailable, "AWS KMS request failed", err)
	}
	return vaulterrpkg.Wrap(vaulterrpkg.KmsUnavailable, "AWS KMS call failed", err)
}
