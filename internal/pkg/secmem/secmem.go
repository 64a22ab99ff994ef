// Package secmem provides a zeroizing byte container for plaintext secrets
// and private key material. Backing memory is overwritten when Destroy is
// called; nothing wipes it automatically if Destroy is never called.
package secmem

import "crypto/subtle"

// Bytes wraps a byte slice that must be wiped once no longer needed.
// The zero value is an empty Bytes that has not been destroyed.
type Bytes struct {
	b        []byte
	destroyed bool
}

// New takes ownership of b and wraps it. Callers must not retain their own
// reference to b after calling New.
func New(b []byte) *Bytes {
	return &Bytes{b: b}
}

// Bytes returns the underlying slice. It is invalid to read after Destroy.
func (s *Bytes) Bytes() []byte {
	if s == nil || s.destroyed {
		return nil
	}
	return s.b
}

// Len reports the length of the wrapped slice.
func (s *Bytes) Len() int {
	if s == nil || s.destroyed {
		return 0
	}
	return len(s.b)
}

// String decodes the wrapped bytes as UTF-8. Invalid after Destroy.
func (s *Bytes) String() string {
	if s == nil || s.destroyed {
		return ""
	}
	return string(s.b)
}

// Destroy overwrites the backing memory with zeroes. Safe to call more than
// once and on a nil receiver.
func (s *Bytes) Destroy() {
	if s == nil || s.destroyed {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	s.destroyed = true
	s.b = nil
}

// Equal performs a constant-time comparison against plaintext bytes.
func (s *Bytes) Equal(other []byte) bool {
	if s == nil || s.destroyed {
		return false
	}
	if len(s.b) != len(other) {
		return false
	}
	return subtle.ConstantTimeCompare(s.b, other) == 1
}

// Zero overwrites an arbitrary slice in place, for callers holding
// intermediate buffers (e.g. derived wrap keys) outside of a Bytes container.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
