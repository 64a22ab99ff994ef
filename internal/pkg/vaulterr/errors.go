// Package vaulterr defines the typed error taxonomy shared by every core
// package. All errors the core returns to a caller are, or wrap, an *Error.
package vaulterr

import (
	"errors"
	"fmt"
)

// Kind classifies the outcome of a failed core operation.
type Kind int

const (
	// NotInitialized means no vault file exists in the target directory.
	NotInitialized Kind = iota
	// AlreadyInitialized means a vault file already exists.
	AlreadyInitialized
	// AccessDenied means no identity resolved to a current recipient.
	AccessDenied
	// NotFound means a named secret or recipient is absent.
	NotFound
	// AlreadyExists means set was called without force against an existing name.
	AlreadyExists
	// InvalidName means a secret name fails the naming rules.
	InvalidName
	// EmptyValue means a secret value was empty.
	EmptyValue
	// InvalidRecipient means a public identifier is malformed.
	InvalidRecipient
	// SchemaMismatch means the vault's schema version is newer than this binary.
	SchemaMismatch
	// DecryptFailure means the cipher, envelope, or KMS path could not produce plaintext.
	DecryptFailure
	// BackendNotCompiled means a KMS path was needed but its build tag (awskms/gcpkms)
	// was not set or no KMS backend is configured. The GPG path has no build tag and
	// does not return it.
	BackendNotCompiled
	// IoError means a filesystem operation failed.
	IoError
	// KmsUnavailable means the KMS call failed for network or credential reasons.
	KmsUnavailable
	// KmsAccessDenied means the KMS call failed for IAM reasons.
	KmsAccessDenied
	// DuplicateLabel means add_recipient was called with a label already in use.
	DuplicateLabel
	// LastRecipient means remove_recipient was called against the sole remaining recipient.
	LastRecipient
	// EmptyRecipients means encrypt was attempted with no recipients.
	EmptyRecipients
	// NoMatchingIdentity means no stanza unwrapped under the supplied identity.
	NoMatchingIdentity
	// CorruptCiphertext means AEAD verification failed.
	CorruptCiphertext
	// PayloadTooLarge means the decoded payload exceeds the size cap.
	PayloadTooLarge
	// UnsupportedProvider means a KMS resource name did not match any known provider prefix.
	UnsupportedProvider
	// KmsCorrupt means a KMS decrypt call returned malformed output.
	KmsCorrupt
)

func (k Kind) String() string {
	switch k {
	case NotInitialized:
		return "NotInitialized"
	case AlreadyInitialized:
		return "AlreadyInitialized"
	case AccessDenied:
		return "AccessDenied"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidName:
		return "InvalidName"
	case EmptyValue:
		return "EmptyValue"
	case InvalidRecipient:
		return "InvalidRecipient"
	case SchemaMismatch:
		return "SchemaMismatch"
	case DecryptFailure:
		return "DecryptFailure"
	case BackendNotCompiled:
		return "BackendNotCompiled"
	case IoError:
		return "IoError"
	case KmsUnavailable:
		return "KmsUnavailable"
	case KmsAccessDenied:
		return "KmsAccessDenied"
	case DuplicateLabel:
		return "DuplicateLabel"
	case LastRecipient:
		return "LastRecipient"
	case EmptyRecipients:
		return "EmptyRecipients"
	case NoMatchingIdentity:
		return "NoMatchingIdentity"
	case CorruptCiphertext:
		return "CorruptCiphertext"
	case PayloadTooLarge:
		return "PayloadTooLarge"
	case UnsupportedProvider:
		return "UnsupportedProvider"
	case KmsCorrupt:
		return "KmsCorrupt"
	default:
		return "Unknown"
	}
}

// Error is the typed error every core package returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around a wrapped cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Of reports the Kind of err if it is, or wraps, a *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func is(err error, k Kind) bool {
	kind, ok := Of(err)
	return ok && kind == k
}

func IsNotInitialized(err error) bool    { return is(err, NotInitialized) }
func IsAlreadyInitialized(err error) bool { return is(err, AlreadyInitialized) }
func IsAccessDenied(err error) bool       { return is(err, AccessDenied) }
func IsNotFound(err error) bool           { return is(err, NotFound) }
func IsAlreadyExists(err error) bool      { return is(err, AlreadyExists) }
func IsInvalidName(err error) bool        { return is(err, InvalidName) }
func IsEmptyValue(err error) bool         { return is(err, EmptyValue) }
func IsInvalidRecipient(err error) bool   { return is(err, InvalidRecipient) }
func IsSchemaMismatch(err error) bool     { return is(err, SchemaMismatch) }
func IsDecryptFailure(err error) bool     { return is(err, DecryptFailure) }
func IsBackendNotCompiled(err error) bool { return is(err, BackendNotCompiled) }
func IsIoError(err error) bool            { return is(err, IoError) }
func IsKmsUnavailable(err error) bool     { return is(err, KmsUnavailable) }
func IsKmsAccessDenied(err error) bool    { return is(err, KmsAccessDenied) }
func IsDuplicateLabel(err error) bool     { return is(err, DuplicateLabel) }
func IsLastRecipient(err error) bool      { return is(err, LastRecipient) }
func IsEmptyRecipients(err error) bool    { return is(err, EmptyRecipients) }
func IsNoMatchingIdentity(err error) bool { return is(err, NoMatchingIdentity) }
func IsCorruptCiphertext(err error) bool  { return is(err, CorruptCiphertext) }
func IsPayloadTooLarge(err error) bool    { return is(err, PayloadTooLarge) }
func IsUnsupportedProvider(err error) bool { return is(err, UnsupportedProvider) }
func IsKmsCorrupt(err error) bool         { return is(err, KmsCorrupt) }
