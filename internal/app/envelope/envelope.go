// Package envelope implements the versioned multi-path envelope codec:
// v2 (canonical, age-path + KMS-path + provider tag), v1 (legacy, a KMS
// ciphertext nested inside an age ciphertext), and raw (bare armored age
// ciphertext, accepted for backward compatibility).
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// v2Prefix begins every v2 envelope's textual record. It doubles as the
// discriminator used during parse precedence.
const v2Prefix = "cellar-envelope:v2:"

// v1Marker precedes the base64 KMS ciphertext nested inside a v1 envelope's
// decrypted inner bytes.
const v1Marker = "cellar-kms-v1:"

// Record is the decoded form of a v2 envelope. At least one of Age or Kms
// must be populated.
type Record struct {
	Version  string `json:"version"`
	Age      string `json:"age,omitempty"`
	Kms      string `json:"kms,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Kind classifies a stored secret's on-disk shape.
type Kind int

const (
	// KindRaw is bare armored age ciphertext with no envelope wrapping.
	KindRaw Kind = iota
	// KindV1 is a legacy KMS-ciphertext-nested-in-age wrapper.
	KindV1
	// KindV2 is the canonical textual record.
	KindV2
)

// EncodeV2 serializes a Record as the stable single-line textual structure
// stored in the vault's [secrets] map.
func EncodeV2(r Record) (string, error) {
	if r.Age == "" && r.Kms == "" {
		return "", vaulterr.New(vaulterr.CorruptCiphertext, "v2 envelope requires at least one of age or kms")
	}
	r.Version = "v2"
	data, err := json.Marshal(r)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "marshal v2 envelope", err)
	}
	return v2Prefix + base64.StdEncoding.EncodeToString(data), nil
}

// IsV2 reports whether stored begins with the v2 envelope prefix.
func IsV2(stored string) bool {
	return strings.HasPrefix(stored, v2Prefix)
}

// DecodeV2 parses a v2 textual record.
func DecodeV2(stored string) (Record, error) {
	var r Record
	encoded := strings.TrimPrefix(stored, v2Prefix)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return r, vaulterr.Wrap(vaulterr.CorruptCiphertext, "decode v2 envelope base64", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, vaulterr.Wrap(vaulterr.CorruptCiphertext, "unmarshal v2 envelope json", err)
	}
	if r.Age == "" && r.Kms == "" {
		return r, vaulterr.New(vaulterr.CorruptCiphertext, "v2 envelope has neither age nor kms path")
	}
	return r, nil
}

// WrapV1 produces the inner bytes of a legacy v1 envelope: the KMS marker
// followed by the base64 KMS ciphertext. The caller age-encrypts the result.
// Retained only so legacy fixtures can be constructed in tests; cellar never
// writes new v1 envelopes (hybrid mode always emits v2).
func WrapV1(kmsCiphertextB64 string) []byte {
	return []byte(v1Marker + kmsCiphertextB64)
}

// ParseV1Inner inspects the decrypted inner bytes of an age ciphertext and
// reports whether they carry a v1 KMS marker, returning the base64 KMS
// ciphertext if so.
func ParseV1Inner(inner []byte) (kmsCiphertextB64 string, ok bool) {
	s := string(inner)
	if !strings.HasPrefix(s, v1Marker) {
		return "", false
	}
	return strings.TrimPrefix(s, v1Marker), true
}

// Classify determines which shape a stored secret string is, without fully
// decoding it. v1 cannot be distinguished from raw without decrypting the
// outer age layer first, so Classify reports KindRaw for both; callers must
// attempt ParseV1Inner after age-decrypting a KindRaw value to find out.
func Classify(stored string) Kind {
	if IsV2(stored) {
		return KindV2
	}
	return KindRaw
}

// IsRawArmor reports whether stored is bare armored age ciphertext (true raw
// or the outer layer of a v1 envelope — indistinguishable until decrypted).
func IsRawArmor(stored string) bool {
	return cipherage.IsArmored(stored)
}
