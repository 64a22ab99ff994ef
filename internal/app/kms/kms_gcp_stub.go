//go:build !gcpkms

package kms

import (
	"context"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

func newGCPAdapter(ctx context.Context) (Adapter, error) {
	return nil, vaulterr.New(vaulterr.BackendNotCompiled, "GCP KMS support was not compiled into this binary (build with -tags gcpkms)")
}
