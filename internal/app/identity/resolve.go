// Package identity implements the ordered identity resolution chain: inline
// environment variable, environment-pointed file, project-local keyfile,
// global keyfile — first match wins, validated against the vault's current
// recipient set.
package identity

import (
	"path/filepath"
	"strings"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/keystore"
	domainidentity "github.com/cellarvault/cellar/internal/domain/identity"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

// Getenv abstracts environment-variable reads so tests inject a thin
// accessor instead of touching the real process environment.
type Getenv func(name string) string

// Resolver resolves a caller's decrypt identity against a vault's recipient
// set, trying sources in the order spec.md §4.5 defines.
type Resolver struct {
	Store  *keystore.Store
	Getenv Getenv
}

// NewResolver returns a Resolver backed by store, reading environment
// variables via getenv.
func NewResolver(store *keystore.Store, getenv Getenv) *Resolver {
	return &Resolver{Store: store, Getenv: getenv}
}

// SourceKind classifies which link in the resolution chain produced an
// identity, so a later rotation knows which file (if any) backs it.
type SourceKind int

const (
	// SourceInlineEnv means the private key came verbatim from
	// CELLAR_IDENTITY; no file backs it.
	SourceInlineEnv SourceKind = iota
	// SourceEnvFile means the private key was read from the path named by
	// CELLAR_IDENTITY_FILE.
	SourceEnvFile
	// SourceProject means the private key came from the project-local
	// keyfile under the Key Store.
	SourceProject
	// SourceGlobal means the private key came from the Key Store's global
	// identity file.
	SourceGlobal
)

// Source describes where a resolved identity's private key currently lives.
type Source struct {
	Kind SourceKind
	// Path is the backing file, empty for SourceInlineEnv.
	Path string
}

// candidate names a resolution attempt, surfaced in the AccessDenied hint.
type candidate struct {
	name    string
	privKey string
	found   bool
	kind    SourceKind
	path    string
}

// Resolve walks the resolution chain for vaultDir (the vault file's
// directory), returning the first candidate identity whose public key
// appears in recipients, along with the source it was read from. If none
// match, it returns AccessDenied enumerating every source tried.
func (r *Resolver) Resolve(vaultDir string, recipients map[string]string) (*domainidentity.Identity, Source, error) {
	absDir, err := filepath.Abs(vaultDir)
	if err != nil {
		return nil, Source{}, vaulterr.Wrap(vaulterr.IoError, "resolve vault directory", err)
	}
	projectID := keystore.ProjectID(absDir)

	candidates := r.candidates(projectID)

	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tried = append(tried, c.name)
		if !c.found {
			continue
		}

		pub, err := cipherage.PublicFromPrivate(c.privKey)
		if err != nil {
			continue // malformed key material: skip, keep trying
		}
		if _, isRecipient := recipientByPublicID(recipients, pub); isRecipient {
			return domainidentity.New(pub, []byte(c.privKey)), Source{Kind: c.kind, Path: c.path}, nil
		}
	}

	return nil, Source{}, vaulterr.New(vaulterr.AccessDenied,
		"no identity resolved to a current recipient (sources tried: "+strings.Join(tried, ", ")+")")
}

func (r *Resolver) candidates(projectID string) []candidate {
	var out []candidate

	inline := strings.TrimSpace(r.Getenv(keystore.AppEnvPrefix + "_IDENTITY"))
	out = append(out, candidate{name: "env:" + keystore.AppEnvPrefix + "_IDENTITY", privKey: inline, found: inline != "", kind: SourceInlineEnv})

	if filePath := strings.TrimSpace(r.Getenv(keystore.AppEnvPrefix + "_IDENTITY_FILE")); filePath != "" {
		content, ok, _ := r.Store.ReadIfPermitted(filePath)
		out = append(out, candidate{name: "env-file:" + filePath, privKey: strings.TrimSpace(content), found: ok, kind: SourceEnvFile, path: filePath})
	} else {
		out = append(out, candidate{name: "env-file:" + keystore.AppEnvPrefix + "_IDENTITY_FILE", found: false, kind: SourceEnvFile})
	}

	projectPath := r.Store.ProjectIdentityPath(projectID)
	projectContent, ok, _ := r.Store.ReadIfPermitted(projectPath)
	out = append(out, candidate{name: "project:" + projectPath, privKey: strings.TrimSpace(projectContent), found: ok, kind: SourceProject, path: projectPath})

	globalPath := r.Store.GlobalIdentityPath()
	globalContent, ok, _ := r.Store.ReadIfPermitted(globalPath)
	out = append(out, candidate{name: "global:" + globalPath, privKey: strings.TrimSpace(globalContent), found: ok, kind: SourceGlobal, path: globalPath})

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
