package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanConfigFlagSpaceForm(t *testing.T) {
	got := scanConfigFlag([]string{"--addr", "localhost:4000", "--config", "profiles.yaml"})
	if got != "profiles.yaml" {
		t.Fatalf("scanConfigFlag() = %q, want %q", got, "profiles.yaml")
	}
}

func TestScanConfigFlagEqualsForm(t *testing.T) {
	got := scanConfigFlag([]string{"--config=profiles.yaml", "--addr", "localhost:4000"})
	if got != "profiles.yaml" {
		t.Fatalf("scanConfigFlag() = %q, want %q", got, "profiles.yaml")
	}
}

func TestScanConfigFlagAbsent(t *testing.T) {
	if got := scanConfigFlag([]string{"--addr", "localhost:4000"}); got != "" {
		t.Fatalf("scanConfigFlag() = %q, want empty", got)
	}
}

func TestLoadFileConfigParsesProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	contents := `
home: /tmp/smudgy-home
profiles:
  - name: main
    address: mud.example.org:4000
    character: Zaphod
  - name: alt
    address: mud.example.org:4001
    legacy_encoding: true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig() = %v, want nil", err)
	}
	if cfg.Home != "/tmp/smudgy-home" {
		t.Fatalf("Home = %q, want /tmp/smudgy-home", cfg.Home)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("len(Profiles) = %d, want 2", len(cfg.Profiles))
	}
	if cfg.Profiles[0].Character != "Zaphod" {
		t.Fatalf("Profiles[0].Character = %q, want Zaphod", cfg.Profiles[0].Character)
	}
	if !cfg.Profiles[1].LegacyEncoding {
		t.Fatalf("Profiles[1].LegacyEncoding = false, want true")
	}
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	if _, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("loadFileConfig() = nil error, want error for missing file")
	}
}

func TestSanitizeServerName(t *testing.T) {
	if got := sanitizeServerName("mud.example.org:4000"); got != "mud.example.org_4000" {
		t.Fatalf("sanitizeServerName() = %q, want mud.example.org_4000", got)
	}
}
