// Package vaultengine orchestrates the high-level vault operations — init,
// open, set, get, delete, list, import, export, add/remove recipient,
// rotate, sync — enforcing the invariants described by the data model:
// every secret stays decryptable for exactly the current recipient set, and
// no intermediate plaintext state is ever persisted.
//
// The engine takes no file lock. Every write replaces the vault file by an
// atomic rename, so readers never see a partial file, but when two processes
// write concurrently the last rename wins and the other's changes are lost.
package vaultengine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cellarvault/cellar/internal/app/backend"
	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/identity"
	"github.com/cellarvault/cellar/internal/app/keystore"
	"github.com/cellarvault/cellar/internal/app/vaultconfig"
	domainidentity "github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/secmem"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// Engine is the entry point collaborators (the CLI, tests) construct once
// per process. It carries the filesystem seam and environment accessor that
// every operation below threads through to vaultconfig/keystore/identity.
type Engine struct {
	Fs     afero.Fs
	Home   string
	Getenv identity.Getenv
}

// New returns an Engine rooted at home, using fs for all I/O and getenv for
// environment reads.
func New(fs afero.Fs, home string, getenv identity.Getenv) *Engine {
	return &Engine{Fs: fs, Home: home, Getenv: getenv}
}

func (e *Engine) store() *keystore.Store {
	return keystore.New(e.Fs, e.Home)
}

// Handle is an open vault with a resolved identity and selected backend,
// the receiver of every subsequent operation in §4.7's table.
type Handle struct {
	engine   *Engine
	dir      string
	absDir   string
	v        *vault.Vault
	back     backend.Backend
	id       *domainidentity.Identity
	idSource identity.Source
}

// Init creates a fresh vault file in projectDir, always generating a new
// identity for the caller, recorded as the sole recipient under label ("me"
// when label is empty) with its private key written to the project-local
// keyfile, and wiring kmsKey into hybrid mode if non-empty.
func (e *Engine) Init(ctx context.Context, projectDir, label, kmsKey string) error {
	if vaultconfig.Exists(e.Fs, projectDir) {
		return vaulterr.New(vaulterr.AlreadyInitialized, "a vault file already exists in "+projectDir)
	}
	if label == "" {
		label = "me"
	}

	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		return err
	}
	if err := vault.ValidateRecipient(label, pub); err != nil {
		return err
	}

	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "resolve project directory", err)
	}
	projectID := keystore.ProjectID(absDir)
	if err := e.store().WriteProjectIdentity(projectID, priv); err != nil {
		return err
	}

	v := vault.New()
	v.Recipients[label] = pub
	if kmsKey != "" {
		v.KMS = &vault.KMSConfig{Key: kmsKey}
	}
	v.Schema.RecipientsHash = v.Fingerprint()

	return vaultconfig.Save(e.Fs, projectDir, v)
}

// Open resolves the caller's identity, selects a backend, and returns a
// Handle for the vault in projectDir.
func (e *Engine) Open(ctx context.Context, projectDir string) (*Handle, error) {
	v, err := vaultconfig.Load(e.Fs, projectDir)
	if err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IoError, "resolve project directory", err)
	}

	resolver := identity.NewResolver(e.store(), e.Getenv)
	id, src, err := resolver.Resolve(projectDir, v.Recipients)
	if err != nil {
		return nil, err
	}

	back, err := backend.Select(ctx, v)
	if err != nil {
		return nil, err
	}

	return &Handle{engine: e, dir: projectDir, absDir: absDir, v: v, back: back, id: id, idSource: src}, nil
}

func (h *Handle) refreshBackend(ctx context.Context) error {
	back, err := backend.Select(ctx, h.v)
	if err != nil {
		return err
	}
	h.back = back
	return nil
}

func (h *Handle) save() error {
	return vaultconfig.Save(h.engine.Fs, h.dir, h.v)
}

// Set stores value under name, encrypting for the current recipient set.
// When name already exists, force must be true or AlreadyExists is returned.
func (h *Handle) Set(ctx context.Context, name, value string, force bool) error {
	if err := vault.ValidateSecretName(name); err != nil {
		return err
	}
	if value == "" {
		return vaulterr.New(vaulterr.EmptyValue, "secret value must not be empty: "+name)
	}
	if existingStored, exists := h.v.Secrets[name]; exists {
		if !force {
			return vaulterr.New(vaulterr.AlreadyExists, "secret already exists (use force to overwrite): "+name)
		}
		if current, err := h.back.Decrypt(ctx, name, existingStored, h.id); err == nil {
			unchanged := current.Equal([]byte(value))
			current.Destroy()
			if unchanged {
				return nil
			}
		}
	}

	stored, err := h.back.EncryptFor(ctx, name, []byte(value), h.v.RecipientList())
	if err != nil {
		return err
	}
	h.v.Secrets[name] = stored
	return h.save()
}

// Get decrypts and returns the plaintext for name in a zeroizing container.
func (h *Handle) Get(ctx context.Context, name string) (*secmem.Bytes, error) {
	stored, exists := h.v.Secrets[name]
	if !exists {
		return nil, vaulterr.New(vaulterr.NotFound, "secret not found: "+name+similarNamesHint(name, h.v.SortedSecretNames()))
	}
	return h.back.Decrypt(ctx, name, stored, h.id)
}

// Delete removes name from the vault.
func (h *Handle) Delete(ctx context.Context, name string) error {
	if _, exists := h.v.Secrets[name]; !exists {
		return vaulterr.New(vaulterr.NotFound, "secret not found: "+name)
	}
	delete(h.v.Secrets, name)
	return h.save()
}

// List returns every secret name in sorted order.
func (h *Handle) List() []string {
	return h.v.SortedSecretNames()
}

// ImportResult reports per-entry outcomes of Import.
type ImportResult struct {
	Imported []string
	Failures map[string]error
}

// Import sets every (name, value) pair, aggregating per-entry failures
// rather than aborting on the first one; entries that validate are written.
func (h *Handle) Import(ctx context.Context, pairs map[string]string) (*ImportResult, error) {
	result := &ImportResult{Failures: make(map[string]error)}

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := false
	for _, name := range names {
		value := pairs[name]
		if err := vault.ValidateSecretName(name); err != nil {
			result.Failures[name] = err
			continue
		}
		if value == "" {
			result.Failures[name] = vaulterr.New(vaulterr.EmptyValue, "secret value must not be empty: "+name)
			continue
		}
		stored, err := h.back.EncryptFor(ctx, name, []byte(value), h.v.RecipientList())
		if err != nil {
			result.Failures[name] = err
			continue
		}
		h.v.Secrets[name] = stored
		result.Imported = append(result.Imported, name)
		changed = true
	}

	if changed {
		if err := h.save(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ExportedSecret is one (name, plaintext) pair returned by Export.
type ExportedSecret struct {
	Name      string
	Plaintext *secmem.Bytes
}

// Export decrypts every secret in sorted order. On the first decrypt
// failure it aborts and returns a DecryptFailure naming that secret; any
// plaintexts already produced are zeroized before returning.
func (h *Handle) Export(ctx context.Context) ([]ExportedSecret, error) {
	names := h.v.SortedSecretNames()
	out := make([]ExportedSecret, 0, len(names))
	for _, name := range names {
		pt, err := h.back.Decrypt(ctx, name, h.v.Secrets[name], h.id)
		if err != nil {
			for _, e := range out {
				e.Plaintext.Destroy()
			}
			return nil, vaulterr.Wrap(vaulterr.DecryptFailure, "export failed at secret "+name, err)
		}
		out = append(out, ExportedSecret{Name: name, Plaintext: pt})
	}
	return out, nil
}

// RecipientsFingerprint returns the hex fingerprint over the current
// recipient set.
func (h *Handle) RecipientsFingerprint() string {
	return h.v.Fingerprint()
}

// Recipients returns the vault's current recipients, sorted by label.
func (h *Handle) Recipients() []vault.Recipient {
	return h.v.RecipientList()
}

// NeedsSync reports whether the stored recipients_hash has drifted from the
// fingerprint of the current recipient set.
func (h *Handle) NeedsSync() bool {
	return h.v.Fingerprint() != h.v.Schema.RecipientsHash
}

func similarNamesHint(name string, candidates []string) string {
	var similar []string
	lower := strings.ToLower(name)
	for _, c := range candidates {
		if c == name {
			continue
		}
		cl := strings.ToLower(c)
		if strings.HasPrefix(cl, lower) || strings.HasPrefix(lower, cl) || strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			similar = append(similar, c)
			continue
		}
		if len(cl) == len(lower) {
			diff := 0
			for i := 0; i < len(cl); i++ {
				if cl[i] != lower[i] {
					diff++
				}
			}
			if diff == 1 {
				similar = append(similar, c)
			}
		}
	}
	if len(similar) == 0 {
		return ""
	}
	return fmt.Sprintf(" (similar names: %s)", strings.Join(similar, ", "))
}
