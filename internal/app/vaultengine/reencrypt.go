package vaultengine

import (
	"context"
	"strings"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/identity"
	"github.com/cellarvault/cellar/internal/app/keystore"
	domainidentity "github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// SyncResult reports the outcome of Sync.
type SyncResult struct {
	Secrets    int
	Recipients int
	WasNeeded  bool
}

// reencryptAll implements the re-encryption protocol: decrypt every secret
// under the current identity, re-encrypt for newRecipients, stage results in
// memory, and commit only if every secret succeeded. On any failure, the
// vault file is left untouched and the per-secret failures are returned.
func (h *Handle) reencryptAll(ctx context.Context, newRecipients map[string]string) error {
	if err := h.refreshBackend(ctx); err != nil {
		return err
	}

	recipientList := make([]vault.Recipient, 0, len(newRecipients))
	for label, pub := range newRecipients {
		recipientList = append(recipientList, vault.Recipient{Label: label, PublicIdentifier: pub})
	}

	names := h.v.SortedSecretNames()
	staged := make(map[string]string, len(names))
	var failures []string

	for _, name := range names {
		pt, err := h.back.Decrypt(ctx, name, h.v.Secrets[name], h.id)
		if err != nil {
			failures = append(failures, name+": "+err.Error())
			continue
		}
		stored, err := h.back.EncryptFor(ctx, name, pt.Bytes(), recipientList)
		pt.Destroy()
		if err != nil {
			failures = append(failures, name+": "+err.Error())
			continue
		}
		staged[name] = stored
	}

	if len(failures) > 0 {
		return vaulterr.New(vaulterr.DecryptFailure, "re-encryption aborted, vault unchanged: "+strings.Join(failures, "; "))
	}

	h.v.Secrets = staged
	h.v.Recipients = newRecipients
	h.v.Schema.RecipientsHash = h.v.Fingerprint()
	return h.save()
}

// AddRecipient adds label/publicID to the recipient set and re-encrypts
// every secret for the expanded set.
func (h *Handle) AddRecipient(ctx context.Context, label, publicID string) error {
	if err := vault.ValidateRecipient(label, publicID); err != nil {
		return err
	}
	if _, exists := h.v.Recipients[label]; exists {
		return vaulterr.New(vaulterr.DuplicateLabel, "recipient label already in use: "+label)
	}

	next := copyRecipients(h.v.Recipients)
	next[label] = publicID
	return h.reencryptAll(ctx, next)
}

// RemoveRecipient removes label from the recipient set and re-encrypts
// every secret for the reduced set. Removing the sole remaining recipient
// is rejected.
func (h *Handle) RemoveRecipient(ctx context.Context, label string) error {
	if _, exists := h.v.Recipients[label]; !exists {
		return vaulterr.New(vaulterr.NotFound, "recipient not found: "+label)
	}
	if len(h.v.Recipients) == 1 {
		return vaulterr.New(vaulterr.LastRecipient, "cannot remove the last recipient: "+label)
	}

	next := copyRecipients(h.v.Recipients)
	delete(next, label)
	return h.reencryptAll(ctx, next)
}

// Rotate replaces the caller's identity: persists the new private key to
// whichever storage the caller's current identity resolved from, updates
// the caller's recipient entry, and re-encrypts every secret for the
// updated set. Persisting the new key must succeed before re-encryption is
// committed.
func (h *Handle) Rotate(ctx context.Context) error {
	callerLabel, ok := recipientByPublicID(h.v.Recipients, h.id.PublicIdentifier)
	if !ok {
		return vaulterr.New(vaulterr.AccessDenied, "caller's identity is not a current recipient")
	}

	newPriv, newPub, err := cipherage.GenerateIdentity()
	if err != nil {
		return err
	}

	if err := h.persistRotatedKey(newPriv, newPub); err != nil {
		return err
	}

	next := copyRecipients(h.v.Recipients)
	next[callerLabel] = newPub

	if err := h.reencryptAll(ctx, next); err != nil {
		return err
	}

	h.id.Destroy()
	h.id = domainidentity.New(newPub, []byte(newPriv))
	return nil
}

// persistRotatedKey archives the caller's current identity file (when one
// exists) and writes the new key to whichever storage backed the identity
// Open resolved, so rotation replaces the key at its actual source instead
// of always assuming the project-local keyfile.
func (h *Handle) persistRotatedKey(newPriv, newPub string) error {
	store := h.engine.store()

	switch h.idSource.Kind {
	case identity.SourceProject:
		projectID := keystore.ProjectID(h.absDir)
		path := store.ProjectIdentityPath(projectID)
		if err := archiveExisting(store, path); err != nil {
			return err
		}
		return store.WriteProjectIdentity(projectID, newPriv)

	case identity.SourceGlobal:
		if err := archiveExisting(store, store.GlobalIdentityPath()); err != nil {
			return err
		}
		return store.WriteGlobalIdentity(newPriv, newPub)

	case identity.SourceEnvFile:
		if err := archiveExisting(store, h.idSource.Path); err != nil {
			return err
		}
		return store.WriteIdentityFile(h.idSource.Path, newPriv)

	default: // identity.SourceInlineEnv
		return vaulterr.New(vaulterr.AccessDenied,
			"identity was supplied inline via "+keystore.AppEnvPrefix+"_IDENTITY, which has no backing file to rotate; "+
				"set "+keystore.AppEnvPrefix+"_IDENTITY to a newly generated key and run sync")
	}
}

// archiveExisting archives path, mapping a missing file to AccessDenied: the
// caller's identity already resolved from this path, so its disappearance
// between Open and Rotate is a terminal access problem, not an ordinary
// not-found.
func archiveExisting(store *keystore.Store, path string) error {
	if _, err := store.ArchiveIdentity(path); err != nil {
		if vaulterr.IsNotFound(err) {
			return vaulterr.Wrap(vaulterr.AccessDenied, "identity file disappeared before rotation could archive it: "+path, err)
		}
		return err
	}
	return nil
}

// Sync recomputes the recipients_hash fast path: if the current fingerprint
// already matches the stored hash and force is false, it returns
// WasNeeded=false without reading or writing any secret. Otherwise it
// re-encrypts every secret for the current recipient set (picking up any
// backend reconfiguration, e.g. a newly added KMS section) unless dryRun is
// true, in which case only the need is reported.
func (h *Handle) Sync(ctx context.Context, dryRun, force bool) (*SyncResult, error) {
	needed := h.NeedsSync()
	if !needed && !force {
		return &SyncResult{WasNeeded: false}, nil
	}
	if dryRun {
		return &SyncResult{WasNeeded: needed || force}, nil
	}

	secretCount := len(h.v.Secrets)
	recipientCount := len(h.v.Recipients)
	if err := h.reencryptAll(ctx, copyRecipients(h.v.Recipients)); err != nil {
		return nil, err
	}
	return &SyncResult{Secrets: secretCount, Recipients: recipientCount, WasNeeded: true}, nil
}

func copyRecipients(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func recipientByPublicID(recipients map[string]string, publicID string) (string, bool) {
	for label, id := range recipients {
		if id == publicID {
			return label, true
		}
	}
	return "", false
}
