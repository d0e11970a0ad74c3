// Package metadata reads and writes the .metadata/metadata.json descriptor
// of an EU5 mod.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Dir is the metadata directory inside a mod root.
	Dir = ".metadata"
	// FileName is the descriptor file inside Dir.
	FileName = "metadata.json"

	// DevNameSuffix marks the development variant of the mod name.
	DevNameSuffix = " Dev"
	// DevIDSuffix marks the development variant of the mod id.
	DevIDSuffix = ".dev"
)

var bom = []byte("\uFEFF")

// Metadata mirrors the fields the game launcher reads from metadata.json.
type Metadata struct {
	Name                 string         `json:"name"`
	ID                   string         `json:"id"`
	Version              string         `json:"version,omitempty"`
	SupportedGameVersion string         `json:"supported_game_version,omitempty"`
	ShortDescription     string         `json:"short_description,omitempty"`
	Tags                 []string       `json:"tags,omitempty"`
	Relationships        []string       `json:"relationships,omitempty"`
	GameCustomData       map[string]any `json:"game_custom_data,omitempty"`
}

// Path returns the descriptor path under the given mod root.
func Path(modDir string) string {
	return filepath.Join(modDir, Dir, FileName)
}

// Load reads the descriptor under the given mod root. The file may carry a
// UTF-8 BOM, as the game tooling writes one.
func Load(modDir string) (*Metadata, error) {
	path := Path(modDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, bom)

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// WriteFile writes the descriptor to path with the BOM and 4-space indent
// the game tooling expects, via a temp file rename.
func (m *Metadata) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bom); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Release returns a copy with the development suffixes stripped from the
// name and id.
func (m *Metadata) Release() *Metadata {
	out := *m
	out.Name = strings.TrimSuffix(out.Name, DevNameSuffix)
	out.ID = strings.TrimSuffix(out.ID, DevIDSuffix)
	return &out
}

// Dev returns a copy with the name replaced when devName is non-empty.
func (m *Metadata) Dev(devName string) *Metadata {
	out := *m
	if devName != "" {
		out.Name = devName
	}
	return &out
}

// Title returns the public mod title: the name without the development
// suffix, trimmed.
func (m *Metadata) Title() string {
	title := m.Name
	if strings.HasSuffix(title, DevNameSuffix) {
		title = strings.TrimRight(strings.TrimSuffix(title, DevNameSuffix), " ")
	}
	return strings.TrimSpace(title)
}
