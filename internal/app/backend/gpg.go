package backend

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/secmem"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// gpgBackend shells out to an OpenPGP-compatible external tool. Identity
// resolution for GPG recipients is delegated entirely to the external tool's
// own keyring; the identity.Identity passed to Decrypt is unused (the gpg
// binary decides which local secret key, if any, can open the message).
type gpgBackend struct{}

var _ Backend = (*gpgBackend)(nil)

func (b *gpgBackend) EncryptFor(ctx context.Context, _ string, plaintext []byte, recipients []vault.Recipient) (string, error) {
	if len(recipients) == 0 {
		return "", vaulterr.New(vaulterr.EmptyRecipients, "no recipients supplied to encrypt")
	}

	args := []string{"--batch", "--trust-model", "always", "--armor", "--encrypt"}
	for _, r := range recipients {
		args = append(args, "--recipient", r.PublicIdentifier)
	}

	cmd := exec.CommandContext(ctx, "gpg", args...)
	cmd.Stdin = bytes.NewReader(plaintext)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", mapGPGError(stderr.String(), err)
	}
	return stdout.String(), nil
}

func (b *gpgBackend) Decrypt(ctx context.Context, _ string, stored string, _ *identity.Identity) (*secmem.Bytes, error) {
	cmd := exec.CommandContext(ctx, "gpg", "--batch", "--trust-model", "always", "--decrypt")
	cmd.Stdin = strings.NewReader(stored)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, mapGPGError(stderr.String(), err)
	}
	return secmem.New(stdout.Bytes()), nil
}

// mapGPGError translates gpg's stderr text into the taxonomy spec.md §4.4
// requires (NoMatchingIdentity, InvalidRecipient, CorruptCiphertext), same
// shape as the teacher's exec.ExitError handling for the aws CLI.
func mapGPGError(stderrText string, cause error) error {
	lower := strings.ToLower(stderrText)
	switch {
	case strings.Contains(lower, "no secret key") || strings.Contains(lower, "decryption failed: no secret key"):
		return vaulterr.Wrap(vaulterr.NoMatchingIdentity, "gpg: no usable secret key: "+stderrText, cause)
	case strings.Contains(lower, "no public key") || strings.Contains(lower, "invalid recipient") || strings.Contains(lower, "skipped"):
		return vaulterr.Wrap(vaulterr.InvalidRecipient, "gpg: invalid recipient: "+stderrText, cause)
	default:
		return vaulterr.Wrap(vaulterr.CorruptCiphertext, "gpg: "+stderrText, cause)
	}
}
