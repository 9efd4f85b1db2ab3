// Package testhelpers provides test utilities for building settings trees
// on disk.
package testhelpers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TemplateCategories are the template directories every tree carries.
var TemplateCategories = []string{"images", "video", "audio", "other"}

// SettingsTree is a settings tree rooted in a test's temporary directory.
type SettingsTree struct {
	t    testing.TB
	Root string
}

// NewSettingsTree creates an empty tree that is removed when the test ends.
func NewSettingsTree(t testing.TB) *SettingsTree {
	t.Helper()
	return &SettingsTree{t: t, Root: t.TempDir()}
}

// Path joins slash-separated rel onto the tree root.
func (s *SettingsTree) Path(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}

// JSON encodes v into rel.
func (s *SettingsTree) JSON(rel string, v any) *SettingsTree {
	s.t.Helper()
	WriteJSON(s.t, s.Path(rel), v)
	return s
}

// File writes content into rel.
func (s *SettingsTree) File(rel, content string) *SettingsTree {
	s.t.Helper()
	WriteFile(s.t, s.Path(rel), content)
	return s
}

// BaseTemplates writes templates/<category>/base.md for every category with
// the content "<category> template".
func (s *SettingsTree) BaseTemplates() *SettingsTree {
	s.t.Helper()
	for _, category := range TemplateCategories {
		s.File("templates/"+category+"/base.md", category+" template")
	}
	return s
}

// WriteJSON encodes v into path, creating parent directories.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	WriteFile(t, path, string(data))
}

// WriteFile writes content into path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	// #nosec G306 - Test fixtures are not sensitive
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
