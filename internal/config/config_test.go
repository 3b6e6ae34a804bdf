package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "pyrite.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.Port != 8787 {
		t.Errorf("Port = %d, want default 8787", cfg.Settings.Port)
	}
	if cfg.Settings.SearchMode != "fts" {
		t.Errorf("SearchMode = %q, want default %q", cfg.Settings.SearchMode, "fts")
	}
	if len(cfg.KnowledgeBases) != 0 {
		t.Errorf("KnowledgeBases = %v, want empty", cfg.KnowledgeBases)
	}
}

func TestLoadParsesKnowledgeBasesAndSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyrite.yaml")
	content := `
version: 1
knowledge_bases:
  - name: dev
    path: kb/dev
    kb_type: generic
    shortname: dev
  - name: archive
    path: kb/archive
    read_only: true
settings:
  index_path: .pyrite/index.db
  workspace_path: ` + dir + `
  host: 0.0.0.0
  port: 9000
  cors_origins: ["https://example.com"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KnowledgeBases) != 2 {
		t.Fatalf("KnowledgeBases len = %d, want 2", len(cfg.KnowledgeBases))
	}
	if cfg.KnowledgeBases[1].ReadOnly != true {
		t.Errorf("archive.ReadOnly = false, want true")
	}
	if cfg.Settings.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Settings.Port)
	}
	if len(cfg.Settings.CORSOrigins) != 1 || cfg.Settings.CORSOrigins[0] != "https://example.com" {
		t.Errorf("CORSOrigins = %v, want one entry", cfg.Settings.CORSOrigins)
	}

	kbs := cfg.ResolvedKnowledgeBases()
	if len(kbs) != 2 {
		t.Fatalf("ResolvedKnowledgeBases len = %d, want 2", len(kbs))
	}
	want := filepath.Join(dir, "kb", "dev")
	if kbs[0].RootPath != want {
		t.Errorf("RootPath = %q, want %q", kbs[0].RootPath, want)
	}
	if kbs[0].Shortname != "dev" {
		t.Errorf("Shortname = %q, want dev", kbs[0].Shortname)
	}
}

func TestGitHubAuthRoundTripsWithRestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "pyrite.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	loaded, err := LoadGitHubAuth(cfg)
	if err != nil {
		t.Fatalf("LoadGitHubAuth (missing file): %v", err)
	}
	if loaded.Token != "" {
		t.Errorf("Token = %q, want empty for missing file", loaded.Token)
	}

	if err := SaveGitHubAuth(cfg, &GitHubAuth{Token: "ghp_example", TokenType: "bearer"}); err != nil {
		t.Fatalf("SaveGitHubAuth: %v", err)
	}

	info, err := os.Stat(cfg.GitHubAuthPath())
	if err != nil {
		t.Fatalf("stat github auth file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("github auth file perm = %o, want 0600", perm)
	}

	reloaded, err := LoadGitHubAuth(cfg)
	if err != nil {
		t.Fatalf("LoadGitHubAuth: %v", err)
	}
	if reloaded.Token != "ghp_example" {
		t.Errorf("Token = %q, want ghp_example", reloaded.Token)
	}
}
