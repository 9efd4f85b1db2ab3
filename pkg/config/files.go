package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// IsValidDirectory reports whether path is an existing directory.
func IsValidDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// AssertValidDirectory fails with domain.ErrNotADirectory unless path is an
// existing directory.
func AssertValidDirectory(path string) error {
	if !IsValidDirectory(path) {
		return fmt.Errorf("%q: %w", path, domain.ErrNotADirectory)
	}
	return nil
}

// IsValidFile reports whether path is an existing regular file.
func IsValidFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// AssertValidFile fails with domain.ErrFileNotFound unless path is an
// existing regular file.
func AssertValidFile(path string) error {
	if !IsValidFile(path) {
		return fmt.Errorf("%q: %w", path, domain.ErrFileNotFound)
	}
	return nil
}

// LoadFile returns the full text content of path.
func LoadFile(path string) (string, error) {
	if err := AssertValidFile(path); err != nil {
		return "", err
	}
	//nolint:gosec // Settings paths are controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// LoadJSON reads path and decodes it as a settings document. The top level
// must be a JSON object.
func LoadJSON(path string) (domain.Document, error) {
	content, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	var doc domain.Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %v", path, domain.ErrMalformedDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to parse %s: %w: top level is not an object", path, domain.ErrMalformedDocument)
	}
	return doc, nil
}
