package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDescriptor(t *testing.T, modDir, content string) {
	t.Helper()
	dir := filepath.Join(modDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	modDir := t.TempDir()
	writeDescriptor(t, modDir, `{
    "name": "My Mod Dev",
    "id": "my_mod.dev",
    "version": "1.2.0",
    "tags": ["Gameplay"]
}`)

	m, err := Load(modDir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "My Mod Dev" || m.ID != "my_mod.dev" || m.Version != "1.2.0" {
		t.Errorf("m = %+v", m)
	}
}

func TestLoad_WithBOM(t *testing.T) {
	modDir := t.TempDir()
	writeDescriptor(t, modDir, "\uFEFF"+`{"name": "My Mod", "id": "my_mod"}`)

	m, err := Load(modDir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "My Mod" {
		t.Errorf("name = %q", m.Name)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(t.TempDir()); !os.IsNotExist(err) {
		t.Errorf("err = %v", err)
	}
}

func TestRelease(t *testing.T) {
	m := &Metadata{Name: "My Mod Dev", ID: "my_mod.dev", Version: "1.0.0"}
	r := m.Release()
	if r.Name != "My Mod" || r.ID != "my_mod" {
		t.Errorf("release = %+v", r)
	}
	if m.Name != "My Mod Dev" || m.ID != "my_mod.dev" {
		t.Errorf("original mutated: %+v", m)
	}

	// Names without the suffix pass through unchanged.
	plain := (&Metadata{Name: "My Mod", ID: "my_mod"}).Release()
	if plain.Name != "My Mod" || plain.ID != "my_mod" {
		t.Errorf("plain = %+v", plain)
	}
}

func TestDev(t *testing.T) {
	m := &Metadata{Name: "My Mod Dev", ID: "my_mod.dev"}
	if d := m.Dev("Nightly Build"); d.Name != "Nightly Build" {
		t.Errorf("dev = %+v", d)
	}
	if d := m.Dev(""); d.Name != "My Mod Dev" {
		t.Errorf("dev without override = %+v", d)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"My Mod Dev", "My Mod"},
		{"My Mod", "My Mod"},
		{"  Spaced Dev", "Spaced"},
	}
	for _, tt := range tests {
		if got := (&Metadata{Name: tt.name}).Title(); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	modDir := t.TempDir()
	m := &Metadata{
		Name:    "My Mod",
		ID:      "my_mod",
		Version: "2.0.0",
		Tags:    []string{"Gameplay", "Localization"},
	}
	if err := m.WriteFile(Path(modDir)); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(Path(modDir))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "\uFEFF") {
		t.Error("missing BOM")
	}
	if !strings.Contains(string(raw), `    "name": "My Mod"`) {
		t.Errorf("not 4-space indented:\n%s", raw)
	}

	back, err := Load(modDir)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != m.Name || back.Version != m.Version || len(back.Tags) != 2 {
		t.Errorf("round trip = %+v", back)
	}
}
