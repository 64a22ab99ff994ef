package identity

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/cellarvault/cellar/internal/app/cipherage"
	"github.com/cellarvault/cellar/internal/app/keystore"
	"github.com/cellarvault/cellar/internal/pkg/vaulterr"
)

func envFrom(m map[string]string) Getenv {
	return func(name string) string { return m[name] }
}

func TestResolveInlineEnvWins(t *testing.T) {
	store := keystore.New(afero.NewMemMapFs(), "/home/dev")
	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, envFrom(map[string]string{
		keystore.AppEnvPrefix + "_IDENTITY": priv,
	}))

	id, src, err := r.Resolve("/home/dev/project", map[string]string{"alice": pub})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.PublicIdentifier != pub {
		t.Fatalf("unexpected identity: %q", id.PublicIdentifier)
	}
	if src.Kind != SourceInlineEnv {
		t.Fatalf("expected SourceInlineEnv, got %v", src.Kind)
	}
}

func TestResolveSkipsNonRecipientInlineKey(t *testing.T) {
	store := keystore.New(afero.NewMemMapFs(), "/home/dev")
	priv, _, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	_, otherPub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, envFrom(map[string]string{
		keystore.AppEnvPrefix + "_IDENTITY": priv,
	}))

	_, _, err = r.Resolve("/home/dev/project", map[string]string{"bob": otherPub})
	if !vaulterr.IsAccessDenied(err) {
		t.Fatalf("expected AccessDenied, got %v", err)
	}
}

func TestResolveFallsThroughToProjectLocalKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := keystore.New(fs, "/home/dev")
	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}

	projectID := keystore.ProjectID("/home/dev/project")
	if err := store.WriteProjectIdentity(projectID, priv); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, envFrom(nil))
	id, src, err := r.Resolve("/home/dev/project", map[string]string{"alice": pub})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.PublicIdentifier != pub {
		t.Fatalf("unexpected identity: %q", id.PublicIdentifier)
	}
	if src.Kind != SourceProject {
		t.Fatalf("expected SourceProject, got %v", src.Kind)
	}
}

func TestResolveSkipsLooseModeProjectKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := keystore.New(fs, "/home/dev")
	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	projectID := keystore.ProjectID("/home/dev/project")
	dir := store.ProjectDir(projectID)
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, store.ProjectIdentityPath(projectID), []byte(priv), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, envFrom(nil))
	_, _, err = r.Resolve("/home/dev/project", map[string]string{"alice": pub})
	if !vaulterr.IsAccessDenied(err) {
		t.Fatalf("expected AccessDenied for loose-mode key, got %v", err)
	}
}

func TestResolveGlobalKeyAsLastResort(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := keystore.New(fs, "/home/dev")
	priv, pub, err := cipherage.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.WriteGlobalIdentity(priv, pub); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, envFrom(nil))
	id, src, err := r.Resolve("/home/dev/project", map[string]string{"alice": pub})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.PublicIdentifier != pub {
		t.Fatalf("unexpected identity: %q", id.PublicIdentifier)
	}
	if src.Kind != SourceGlobal {
		t.Fatalf("expected SourceGlobal, got %v", src.Kind)
	}
}
