// Package vaultconfig reads and writes the vault file: a human-readable
// TOML document. Saves are atomic (temp file, fsync, rename over target).
package vaultconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/cellarvault/cellar/internal/domain/vault"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// FileName is the vault file's name within a project directory.
const FileName = "cellar.toml"

// Path returns the vault file path for projectDir.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Exists reports whether a vault file is present in projectDir.
func Exists(fs afero.Fs, projectDir string) bool {
	_, err := fs.Stat(Path(projectDir))
	return err == nil
}

type tomlSchema struct {
	Version        string `toml:"version"`
	RecipientsHash string `toml:"recipients_hash,omitempty"`
}

type tomlKMS struct {
	Key string `toml:"key"`
}

type tomlDoc struct {
	Cellar     tomlSchema        `toml:"cellar"`
	KMS        *tomlKMS          `toml:"kms,omitempty"`
	Recipients map[string]string `toml:"recipients"`
	Secrets    map[string]string `toml:"secrets"`
}

// Load reads and parses the vault file in projectDir.
func Load(fs afero.Fs, projectDir string) (*vault.Vault, error) {
	path := Path(projectDir)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterr.New(vaulterr.NotInitialized, "no vault file at "+path)
		}
		return nil, vaulterr.Wrap(vaulterr.IoError, "read vault file", err)
	}

	var doc tomlDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, vaulterr.Wrap(vaulterr.IoError, "parse vault file", err)
	}

	if err := checkSchemaVersion(doc.Cellar.Version); err != nil {
		return nil, err
	}

	v := &vault.Vault{
		Schema:     vault.Schema{Version: doc.Cellar.Version, RecipientsHash: doc.Cellar.RecipientsHash},
		Recipients: doc.Recipients,
		Secrets:    doc.Secrets,
	}
	if v.Recipients == nil {
		v.Recipients = make(map[string]string)
	}
	if v.Secrets == nil {
		v.Secrets = make(map[string]string)
	}
	if doc.KMS != nil && doc.KMS.Key != "" {
		v.KMS = &vault.KMSConfig{Key: doc.KMS.Key}
	}
	return v, nil
}

// checkSchemaVersion rejects a vault whose major schema version is newer
// than this binary understands, per spec.md §7 SchemaMismatch.
func checkSchemaVersion(version string) error {
	if version == "" {
		return nil
	}
	major, _, ok := strings.Cut(version, ".")
	if !ok {
		return nil
	}
	loadedMajor, err := strconv.Atoi(major)
	if err != nil {
		return nil
	}
	currentMajor, _, _ := strings.Cut(vault.SchemaVersion, ".")
	currentMajorN, _ := strconv.Atoi(currentMajor)
	if loadedMajor > currentMajorN {
		return vaulterr.New(vaulterr.SchemaMismatch, "vault schema version "+version+" is newer than this binary supports")
	}
	return nil
}

// Save atomically writes v to the vault file in projectDir: marshal to a
// sibling temp file, fsync, rename over the target. No partial state is ever
// observable by a concurrent reader.
func Save(fs afero.Fs, projectDir string, v *vault.Vault) error {
	if err := fs.MkdirAll(projectDir, 0o755); err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "create project directory", err)
	}

	doc := tomlDoc{
		Cellar:     tomlSchema{Version: v.Schema.Version, RecipientsHash: v.Schema.RecipientsHash},
		Recipients: v.Recipients,
		Secrets:    v.Secrets,
	}
	if v.KMS != nil && v.KMS.Key != "" {
		doc.KMS = &tomlKMS{Key: v.KMS.Key}
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "marshal vault file", err)
	}

	path := Path(projectDir)
	tmpPath := path + ".tmp"

	f, err := fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IoError, "create temp vault file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(tmpPath)
		return vaulterr.Wrap(vaulterr.IoError, "write temp vault file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		fs.Remove(tmpPath)
		return vaulterr.Wrap(vaulterr.IoError, "sync temp vault file", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmpPath)
		return vaulterr.Wrap(vaulterr.IoError, "close temp vault file", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath)
		return vaulterr.Wrap(vaulterr.IoError, "rename temp vault file into place", err)
	}
	return nil
}
