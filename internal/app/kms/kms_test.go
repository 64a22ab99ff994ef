package kms

import (
	"context"
	"testing"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		name    string
		want    ProviderKind
		wantErr bool
	}{
		{"arn:aws:kms:us-east-1:111122223333:key/abcd-1234", ProviderAWS, false},
		{"projects/my-proj/locations/global/keyRings/r/cryptoKeys/k", ProviderGCP, false},
		{"not-a-resource-name", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := DetectProvider(c.name)
		if c.wantErr {
			if !vaulterr.IsUnsupportedProvider(err) {
				t.Errorf("DetectProvider(%q): expected UnsupportedProvider, got %v", c.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("DetectProvider(%q): unexpected error %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("DetectProvider(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNewWithoutBuildTagsIsNotCompiled(t *testing.T) {
	// The default test build carries neither awskms nor gcpkms, so both
	// adapters must report BackendNotCompiled rather than attempting any
	// network or credential access.
	if _, err := New(context.Background(), ProviderAWS); !vaulterr.IsBackendNotCompiled(err) {
		t.Errorf("expected BackendNotCompiled for AWS, got %v", err)
	}
	if _, err := New(context.Background(), ProviderGCP); !vaulterr.IsBackendNotCompiled(err) {
		t.Errorf("expected BackendNotCompiled for GCP, got %v", err)
	}
}
