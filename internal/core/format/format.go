// SPDX-License-Identifier: Apache-2.0

package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses a file, trying YAML first, then JSON
func ParseFile(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return ParseData(data, v)
}

// ParseData parses data, trying YAML first, then JSON
func ParseData(data []byte, v interface{}) error {
	// Try YAML first (preferred format)
	err := yaml.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	// If YAML fails, try JSON for backward compatibility
	jsonErr := json.Unmarshal(data, v)
	if jsonErr == nil {
		return nil
	}

	// Both failed - return the more informative error
	return fmt.Errorf("failed to parse as YAML (%v) or JSON (%v)", err, jsonErr)
}

// WriteYAML writes data to a file in YAML format
func WriteYAML(filePath string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling YAML: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// WriteJSON writes data to a file in JSON format
func WriteJSON(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// AtomicWriteYAML marshals v as YAML and writes it through AtomicWriteRaw.
// State files are rewritten after every mutation, so a crash mid-write must
// never leave a truncated file behind.
func AtomicWriteYAML(filePath string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling YAML: %w", err)
	}

	return AtomicWriteRaw(filePath, data)
}

// AtomicWriteRaw writes content to a temp file in the target directory and
// renames it over filePath. The rename is atomic on the same volume.
func AtomicWriteRaw(filePath string, content []byte) error {
	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, ".relwiz-tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("error syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("error renaming temp file: %w", err)
	}

	return nil
}

// ExpandHome expands a leading ~ to the user home directory. Returns the
// input unchanged when the home directory cannot be determined.
func ExpandHome(path string) string {
	if path == "~" {
		if home := HomeDir(); home != "" {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home := HomeDir(); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// AbbreviateHome replaces the home directory prefix with ~ for display.
func AbbreviateHome(line string) string {
	home := HomeDir()
	if home == "" {
		return line
	}
	return strings.ReplaceAll(line, home, "~")
}

// HomeDir returns the home directory, respecting RELWIZ_HOME for testing
func HomeDir() string {
	if override := os.Getenv("RELWIZ_HOME"); override != "" {
		return override
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// IsYAMLFile returns true if the file extension suggests it's a YAML file
func IsYAMLFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}
