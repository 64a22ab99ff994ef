// Package keystore implements the Key Store: filesystem layout for private
// keys under the user's home directory, permission enforcement, and
// archival of rotated keys. All I/O goes through an afero.Fs so tests can
// redirect "home" to an in-memory filesystem instead of the real one.
package keystore

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// AppDirName is the directory name under the user's home, "~/.cellar/".
const AppDirName = "cellar"

// AppEnvPrefix is the environment-variable prefix the Identity chain reads,
// "CELLAR_IDENTITY" / "CELLAR_IDENTITY_FILE".
const AppEnvPrefix = "CELLAR"

// privateKeyMode is the required mode for private key files.
const privateKeyMode = 0o600

// publicKeyMode is the mode for public key / request files.
const publicKeyMode = 0o644

// Store is the filesystem layout rooted at <home>/.cellar/.
type Store struct {
	Fs   afero.Fs
	Home string
}

// New returns a Store rooted at home, using fs for all I/O.
func New(fs afero.Fs, home string) *Store {
	return &Store{Fs: fs, Home: home}
}

func (s *Store) baseDir() string {
	return filepath.Join(s.Home, "."+AppDirName)
}

// GlobalIdentityPath is <home>/.cellar/identity.
func (s *Store) GlobalIdentityPath() string {
	return filepath.Join(s.baseDir(), "identity")
}

// GlobalPublicPath is <home>/.cellar/identity.pub.
func (s *Store) GlobalPublicPath() string {
	return filepath.Join(s.baseDir(), "identity.pub")
}

// ProjectDir is <home>/.cellar/keys/<project_id>/.
func (s *Store) ProjectDir(projectID string) string {
	return filepath.Join(s.baseDir(), "keys", projectID)
}

// ProjectIdentityPath is <home>/.cellar/keys/<project_id>/identity.key.
func (s *Store) ProjectIdentityPath(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "identity.key")
}

// RequestsDir is <home>/.cellar/requests/[<vaultLabel>/]. An empty
// vaultLabel omits the subdirectory.
func (s *Store) RequestsDir(vaultLabel string) string {
	if vaultLabel == "" {
		return filepath.Join(s.baseDir(), "requests")
	}
	return filepath.Join(s.baseDir(), "requests", vaultLabel)
}

// ProjectID derives the stable per-project hash from the vault's absolute
// directory path: hex(sha256(absDir))[:16].
func ProjectID(absDir string) string {
	sum := sha256.Sum256([]byte(absDir))
	return hex.EncodeToString(sum[:])[:16]
}

// WriteGlobalIdentity writes the global private/public key pair, 0600/0644.
func (s *Store) WriteGlobalIdentity(privateKey, publicKey string) error {
	if err := s.Fs.MkdirAll(s.baseDir(), 0o700); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "create cellar home directory", err)
	}
	if err := afero.WriteFile(s.Fs, s.GlobalIdentityPath(), []byte(privateKey), privateKeyMode); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "write global identity", err)
	}
	if err := afero.WriteFile(s.Fs, s.GlobalPublicPath(), []byte(publicKey), publicKeyMode); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "write global public key", err)
	}
	return nil
}

// WriteProjectIdentity writes a project-scoped private key, 0600, creating
// the project's key directory if necessary.
func (s *Store) WriteProjectIdentity(projectID, privateKey string) error {
	dir := s.ProjectDir(projectID)
	if err := s.Fs.MkdirAll(dir, 0o700); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "create project key directory", err)
	}
	if err := afero.WriteFile(s.Fs, s.ProjectIdentityPath(projectID), []byte(privateKey), privateKeyMode); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "write project identity", err)
	}
	return nil
}

// WriteIdentityFile writes a private key to an arbitrary path, 0600. Used to
// rotate an identity that was resolved from CELLAR_IDENTITY_FILE back into
// the same file the caller already pointed at.
func (s *Store) WriteIdentityFile(path, privateKey string) error {
	if err := afero.WriteFile(s.Fs, path, []byte(privateKey), privateKeyMode); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "write identity file", err)
	}
	return nil
}

// ArchiveIdentity renames path to path.<UTC timestamp>, looping with
// increasing nanosecond precision until an unused suffix is found (TOCTOU
// safety against two archives landing in the same second).
func (s *Store) ArchiveIdentity(path string) (string, error) {
	if _, err := s.Fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", vaulterr.New(vaulterr.NotFound, "no identity file to archive at "+path)
		}
		return "", vaulterr.Wrap(vaulterr.IoError, "stat identity file", err)
	}

	base := path + "." + time.Now().UTC().Format("20060102T150405Z")
	archived := base
	suffix := 0
	for {
		if _, err := s.Fs.Stat(archived); os.IsNotExist(err) {
			break
		}
		suffix++
		archived = base + "." + strconv.Itoa(time.Now().UTC().Nanosecond()) + "-" + strconv.Itoa(suffix)
	}

	if err := s.Fs.Rename(path, archived); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "archive identity file", err)
	}
	return archived, nil
}

// WriteAccessRequest writes a non-member's public key under requests/, the
// bare file-drop half of the knock/admit workflow (the admit decision is a
// CLI collaborator's concern, not the core's). Each request gets a random
// suffix so a second request from the same label never clobbers a pending
// one awaiting review.
func (s *Store) WriteAccessRequest(vaultLabel, label, publicKey string) (string, error) {
	dir := s.RequestsDir(vaultLabel)
	if err := s.Fs.MkdirAll(dir, 0o700); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "create requests directory", err)
	}
	path := filepath.Join(dir, label+"."+uuid.NewString()+".pub")
	if err := afero.WriteFile(s.Fs, path, []byte(publicKey), publicKeyMode); err != nil {
		return "", vaulterr.Wrap(vaulterr.IoError, "write access request", err)
	}
	return path, nil
}

// ReadIfPermitted reads path and reports its contents only if the file's
// mode satisfies privateKeyMode on Unix. On a looser-mode file it returns
// ok=false with no error (the source is skipped, not treated as failed). A
// missing file is likewise ok=false, no error. On non-Unix platforms the
// permission check is a no-op.
func (s *Store) ReadIfPermitted(path string) (content string, ok bool, err error) {
	info, statErr := s.Fs.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, vaulterr.Wrap(vaulterr.IoError, "stat identity file", statErr)
	}

	if runtime.GOOS != "windows" {
		if info.Mode().Perm() != privateKeyMode {
			return "", false, nil
		}
	}

	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		return "", false, vaulterr.Wrap(vaulterr.IoError, "read identity file", err)
	}
	return string(data), true, nil
}
