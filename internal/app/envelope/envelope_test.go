package envelope

import "testing"

func TestEncodeDecodeV2Roundtrip(t *testing.T) {
	rec := Record{Age: "-----BEGIN AGE ENCRYPTED FILE-----\n...\n-----END AGE ENCRYPTED FILE-----", Kms: "YmFzZTY0", Provider: "aws"}
	stored, err := EncodeV2(rec)
	if err != nil {
		t.Fatalf("EncodeV2: %v", err)
	}
	if !IsV2(stored) {
		t.Fatalf("expected v2 prefix, got %q", stored[:20])
	}

	decoded, err := DecodeV2(stored)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if decoded.Age != rec.Age || decoded.Kms != rec.Kms || decoded.Provider != rec.Provider {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", decoded, rec)
	}
	if decoded.Version != "v2" {
		t.Fatalf("expected version v2, got %q", decoded.Version)
	}
}

func TestEncodeV2RequiresAgeOrKms(t *testing.T) {
	_, err := EncodeV2(Record{})
	if err == nil {
		t.Fatal("expected error for empty record")
	}
}

func TestClassify(t *testing.T) {
	stored, _ := EncodeV2(Record{Age: "x"})
	if Classify(stored) != KindV2 {
		t.Fatal("expected KindV2")
	}
	raw := "-----BEGIN AGE ENCRYPTED FILE-----\nYWJj\n-----END AGE ENCRYPTED FILE-----"
	if Classify(raw) != KindRaw {
		t.Fatal("expected KindRaw")
	}
}

func TestV1MarkerRoundtrip(t *testing.T) {
	inner := WrapV1("a2ltc2NpcGhlcnRleHQ=")
	b64, ok := ParseV1Inner(inner)
	if !ok {
		t.Fatal("expected v1 marker detected")
	}
	if b64 != "a2ltc2NpcGhlcnRleHQ=" {
		t.Fatalf("unexpected kms ciphertext: %q", b64)
	}

	_, ok = ParseV1Inner([]byte("plain secret value"))
	if ok {
		t.Fatal("expected no v1 marker on plain bytes")
	}
}
