package vault

import (
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// ValidateSecretName enforces environment-variable naming rules: first
// character a letter or underscore, subsequent characters letters, digits,
// or underscores.
func ValidateSecretName(name string) error {
	if name == "" {
		return vaulterr.New(vaulterr.InvalidName, "secret name must not be empty")
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return vaulterr.New(vaulterr.InvalidName, "secret name must not start with a digit: "+name)
			}
		default:
			return vaulterr.New(vaulterr.InvalidName, "secret name contains an invalid character: "+name)
		}
	}
	return nil
}

// ValidateRecipient checks a (label, public identifier) pair for the
// invariants spec'd for the recipients map: non-empty label, non-empty
// identifier.
func ValidateRecipient(label, publicIdentifier string) error {
	if label == "" {
		return vaulterr.New(vaulterr.InvalidRecipient, "recipient label must not be empty")
	}
	if publicIdentifier == "" {
		return vaulterr.New(vaulterr.InvalidRecipient, "recipient public identifier must not be empty")
	}
	return nil
}
