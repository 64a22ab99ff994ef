package backend

import (
	"bytes"
	"context"
	"testing"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/envelope"
	"github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// fakeKMS is an in-memory stand-in for a cloud KMS adapter, used so hybrid
// backend tests never touch the network.
type fakeKMS struct {
	store map[string][]byte // ciphertext (opaque token) -> plaintext
	seq   int
}

func newFakeKMS() *fakeKMS { return &fakeKMS{store: make(map[string][]byte)} }

func (f *fakeKMS) Encrypt(_ context.Context, plaintext []byte, _ string, secretName string) (string, error) {
	f.seq++
	token := secretName + "#" + string(rune('a'+f.seq))
	f.store[token] = append([]byte(nil), plaintext...)
	return token, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, ciphertextB64 string, _ string, _ string) ([]byte, error) {
	pt, ok := f.store[ciphertextB64]
	if !ok {
		return nil, vaulterr.New(vaulterr.KmsCorrupt, "unknown token")
	}
	return append([]byte(nil), pt...), nil
}

func newIdentity(t *testing.T) (*identity.Identity, vault.Recipient) {
	t.Helper()
	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	return identity.New(pub, []byte(priv)), vault.Recipient{Label: "alice", PublicIdentifier: pub}
}

func TestAgeOnlyRoundtrip(t *testing.T) {
	id, recipient := newIdentity(t)
	b := &ageOnlyBackend{}
	stored, err := b.EncryptFor(context.Background(), "API_KEY", []byte("s3cr3t"), []vault.Recipient{recipient})
	if err != nil {
		t.Fatalf("EncryptFor: %v", err)
	}
	if !envelope.IsRawArmor(stored) {
		t.Fatalf("age-only must emit raw armor, got %q", stored[:20])
	}
	pt, err := b.Decrypt(context.Background(), "API_KEY", stored, id)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer pt.Destroy()
	if !bytes.Equal(pt.Bytes(), []byte("s3cr3t")) {
		t.Fatalf("roundtrip mismatch: %q", pt.Bytes())
	}
}

func TestHybridRoundtripViaAge(t *testing.T) {
	id, recipient := newIdentity(t)
	hb := &hybridBackend{adapter: newFakeKMS(), resourceName: "arn:aws:kms:us-east-1:1:key/x", provider: "aws"}

	stored, err := hb.EncryptFor(context.Background(), "DB_PASSWORD", []byte("hunter2"), []vault.Recipient{recipient})
	if err != nil {
		t.Fatalf("EncryptFor: %v", err)
	}
	if !envelope.IsV2(stored) {
		t.Fatalf("hybrid must emit v2 envelope, got %q", stored[:20])
	}

	pt, err := hb.Decrypt(context.Background(), "DB_PASSWORD", stored, id)
	if err != nil {
		t.Fatalf("Decrypt via age path: %v", err)
	}
	defer pt.Destroy()
	if !bytes.Equal(pt.Bytes(), []byte("hunter2")) {
		t.Fatalf("roundtrip mismatch: %q", pt.Bytes())
	}
}

func TestHybridRoundtripViaKMSWithNoIdentity(t *testing.T) {
	_, recipient := newIdentity(t)
	hb := &hybridBackend{adapter: newFakeKMS(), resourceName: "arn:aws:kms:us-east-1:1:key/x", provider: "aws"}

	stored, err := hb.EncryptFor(context.Background(), "TOKEN", []byte("payload"), []vault.Recipient{recipient})
	if err != nil {
		t.Fatalf("EncryptFor: %v", err)
	}

	pt, err := hb.Decrypt(context.Background(), "TOKEN", stored, nil)
	if err != nil {
		t.Fatalf("Decrypt via KMS path with no identity: %v", err)
	}
	defer pt.Destroy()
	if !bytes.Equal(pt.Bytes(), []byte("payload")) {
		t.Fatalf("roundtrip mismatch: %q", pt.Bytes())
	}
}

func TestSelectPicksAgeOnlyByDefault(t *testing.T) {
	_, recipient := newIdentity(t)
	v := vault.New()
	v.Recipients[recipient.Label] = recipient.PublicIdentifier

	b, err := Select(context.Background(), v)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, ok := b.(*ageOnlyBackend); !ok {
		t.Fatalf("expected ageOnlyBackend, got %T", b)
	}
}

func TestSelectPicksGPGForEmailRecipients(t *testing.T) {
	v := vault.New()
	v.Recipients["bob"] = "bob@example.com"

	b, err := Select(context.Background(), v)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, ok := b.(*gpgBackend); !ok {
		t.Fatalf("expected gpgBackend, got %T", b)
	}
}

func TestMapGPGError(t *testing.T) {
	cases := map[string]func(error) bool{
		"gpg: decryption failed: No secret key":      vaulterr.IsNoMatchingIdentity,
		"gpg: skipped \"bob\": No public key":        vaulterr.IsInvalidRecipient,
		"gpg: [don't know]: invalid packet (ctb=14)": vaulterr.IsCorruptCiphertext,
	}
	for stderr, check := range cases {
		err := mapGPGError(stderr, vaulterr.New(vaulterr.CorruptCiphertext, "exit status 2"))
		if !check(err) {
			t.Errorf("mapGPGError(%q) = %v, did not match expected kind", stderr, err)
		}
	}
}
