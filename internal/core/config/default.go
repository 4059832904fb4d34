// SPDX-License-Identifier: Apache-2.0

package config

import (
	_ "embed"
)

//go:embed releasewizard.yaml
var defaultChecklist []byte

// DefaultChecklist returns the raw embedded checklist document.
func DefaultChecklist() []byte {
	return defaultChecklist
}

// LoadDefault parses the embedded checklist shipped with the binary.
func LoadDefault() (*Definition, error) {
	return Parse(defaultChecklist)
}
