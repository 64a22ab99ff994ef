package cipherage

import (
	"strings"
	"testing"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	priv, pub, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	ciphertext, err := Encrypt([]byte("hello vault"), []string{pub})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsArmored(ciphertext) {
		t.Fatalf("expected armored output, got %q", ciphertext[:40])
	}

	plaintext, err := Decrypt(ciphertext, priv)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer plaintext.Destroy()
	if plaintext.String() != "hello vault" {
		t.Fatalf("roundtrip mismatch: got %q", plaintext.String())
	}
}

func TestEncryptEmptyRecipients(t *testing.T) {
	_, err := Encrypt([]byte("x"), nil)
	if !vaulterr.IsEmptyRecipients(err) {
		t.Fatalf("expected EmptyRecipients, got %v", err)
	}
}

func TestEncryptInvalidRecipient(t *testing.T) {
	_, err := Encrypt([]byte("x"), []string{"not-a-valid-key"})
	if !vaulterr.IsInvalidRecipient(err) {
		t.Fatalf("expected InvalidRecipient, got %v", err)
	}
}

func TestDecryptWrongIdentity(t *testing.T) {
	_, pub, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	wrongPriv, _, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}

	ciphertext, err := Encrypt([]byte("secret"), []string{pub})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err = Decrypt(ciphertext, wrongPriv)
	if !vaulterr.IsNoMatchingIdentity(err) {
		t.Fatalf("expected NoMatchingIdentity, got %v", err)
	}
}

func TestDecryptCorrupt(t *testing.T) {
	_, pub, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	priv, _, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	ciphertext, err := Encrypt([]byte("secret"), []string{pub})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	corrupted := strings.Replace(ciphertext, "A", "B", 1)
	_, err = Decrypt(corrupted, priv)
	if err == nil {
		t.Fatal("expected an error decrypting corrupted ciphertext")
	}
}

func TestMultipleRecipients(t *testing.T) {
	priv1, pub1, _ := GenerateIdentity()
	priv2, pub2, _ := GenerateIdentity()

	ciphertext, err := Encrypt([]byte("shared"), []string{pub1, pub2})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for _, priv := range []string{priv1, priv2} {
		pt, err := Decrypt(ciphertext, priv)
		if err != nil {
			t.Fatalf("Decrypt for recipient: %v", err)
		}
		if pt.String() != "shared" {
			t.Fatalf("unexpected plaintext: %q", pt.String())
		}
		pt.Destroy()
	}
}
