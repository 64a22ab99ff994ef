// Package cipherage is the age-style cipher primitive: authenticated
// asymmetric encryption of a byte sequence for N recipients, built on
// filippo.io/age's X25519 recipients/identities and ASCII armor.
package cipherage

import (
	"bytes"
	"errors"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/cellarvault/cellar/internal/pkg/secmem"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// MaxPayloadSize bounds decrypted payload size (10 MiB), a DoS defense
// applied uniformly regardless of the declared size in the ciphertext.
const MaxPayloadSize = 10 * 1024 * 1024

// Name reports the cipher primitive's identifier.
func Name() string { return "age" }

// GenerateIdentity creates a fresh X25519 keypair, returning the private key
// in Bech32 (AGE-SECRET-KEY-1…) form and the corresponding public recipient
// string (age1…).
func GenerateIdentity() (privateKey string, publicKey string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", vaulterr.Wrap(vaulterr.IoError, "generate identity", err)
	}
	return id.String(), id.Recipient().String(), nil
}

// PublicFromPrivate derives the age1… public recipient string from a
// private key in Bech32 (AGE-SECRET-KEY-1…) form.
func PublicFromPrivate(privateKey string) (string, error) {
	id, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.InvalidRecipient, "malformed identity private key", err)
	}
	return id.Recipient().String(), nil
}

// Encrypt encrypts plaintext for the given recipient public keys, emitting
// ASCII-armored output with one stanza per recipient. Fails with
// EmptyRecipients if recipients is empty, InvalidRecipient if any public key
// is malformed.
func Encrypt(plaintext []byte, recipients []string) (string, error) {
	if len(recipients) == 0 {
		return "", vaulterr.New(vaulterr.EmptyRecipients, "no recipients supplied to encrypt")
	}

	ageRecipients := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		rec, err := age.ParseX25519Recipient(r)
		if err != nil {
			return "", vaulterr.Wrap(vaulterr.InvalidRecipient, "malformed recipient public key: "+r, err)
		}
		ageRecipients = append(ageRecipients, rec)
	}

	var buf bytes.Buffer
	armorWriter := armor.NewWriter(&buf)
	w, err := age.Encrypt(armorWriter, ageRecipients...)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "set up age encryption", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "write age payload", err)
	}
	if err := w.Close(); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "close age payload", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "close age armor", err)
	}
	return buf.String(), nil
}

// Decrypt decrypts armored age ciphertext under the supplied private key,
// returning a zeroizing container holding the plaintext. Fails with
// NoMatchingIdentity if no stanza unwraps, CorruptCiphertext on AEAD
// failure, PayloadTooLarge if the payload exceeds MaxPayloadSize.
func Decrypt(ciphertext string, privateKey string) (*secmem.Bytes, error) {
	id, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.InvalidRecipient, "malformed identity private key", err)
	}

	armorReader := armor.NewReader(bytes.NewReader([]byte(ciphertext)))
	r, err := age.Decrypt(armorReader, id)
	if err != nil {
		if errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, vaulterr.Wrap(vaulterr.NoMatchingIdentity, "no stanza unwrapped under this identity", err)
		}
		return nil, vaulterr.Wrap(vaulterr.CorruptCiphertext, "age decrypt failed", err)
	}

	limited := io.LimitReader(r, MaxPayloadSize+1)
	plaintext, err := io.ReadAll(limited)
	if err != nil {
		secmem.Zero(plaintext)
		return nil, vaulterr.Wrap(vaulterr.CorruptCiphertext, "read age payload", err)
	}
	if len(plaintext) > MaxPayloadSize {
		secmem.Zero(plaintext)
		return nil, vaulterr.New(vaulterr.PayloadTooLarge, "decrypted payload exceeds size cap")
	}
	return secmem.New(plaintext), nil
}

// IsArmored reports whether s begins with the age ASCII armor header,
// distinguishing raw/legacy age ciphertext from a v2 envelope record.
func IsArmored(s string) bool {
	return bytes.HasPrefix([]byte(s), []byte("-----BEGIN AGE ENCRYPTED FILE-----"))
}
