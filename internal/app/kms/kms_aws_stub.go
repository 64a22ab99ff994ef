//go:build !awskms

package kms

import (
	"context"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

func newAWSAdapter(ctx context.Context) (Adapter, error) {
	return nil, vaulterr.New(vaulterr.BackendNotCompiled, "AWS KMS support was not compiled into this binary (build with -tags awskms)")
}
