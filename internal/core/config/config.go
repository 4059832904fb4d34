// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates checklist definition documents.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/core/schema"
	"github.com/relwiz/relwiz/internal/wizard/release"
)

// Definition is a parsed checklist definition document: project identity,
// prerequisites, named templates and the step group tree.
type Definition struct {
	Project       string               `yaml:"project"`
	DistURLBase   string               `yaml:"dist_url_base,omitempty"`
	Prerequisites []string             `yaml:"prerequisites,omitempty"`
	Templates     map[string]string    `yaml:"templates,omitempty"`
	Groups        []*release.StepGroup `yaml:"groups"`
}

// Load reads a definition document from path. The document is validated
// against the structural schema before decoding; shape errors are fatal.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading definition file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes a definition document.
func Parse(data []byte) (*Definition, error) {
	var doc interface{}
	if err := format.ParseData(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing definition: %w", err)
	}
	if err := schema.ValidateChecklist(doc); err != nil {
		return nil, err
	}

	var def Definition
	if err := format.ParseData(data, &def); err != nil {
		return nil, fmt.Errorf("error decoding definition: %w", err)
	}
	if def.Project == "" {
		def.Project = "project"
	}
	return &def, nil
}

// Pointer is the small file in the user's home directory remembering where
// release state lives and which release is in progress, so the wizard can be
// restarted without arguments.
type Pointer struct {
	Root           string `json:"root"`
	ReleaseVersion string `json:"release_version"`
}

// PointerPath is the location of the pointer file.
func PointerPath() string {
	return filepath.Join(format.HomeDir(), ".relwizrc")
}

// LoadPointer reads the pointer file. A missing file returns nil without
// error.
func LoadPointer() (*Pointer, error) {
	path := PointerPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var p Pointer
	if err := format.ParseFile(path, &p); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return &p, nil
}

// StorePointer writes the pointer file.
func StorePointer(p *Pointer) error {
	return format.WriteJSON(PointerPath(), p)
}

// RemovePointer deletes the pointer file if present.
func RemovePointer() error {
	err := os.Remove(PointerPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
