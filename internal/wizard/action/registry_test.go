// SPDX-License-Identifier: Apache-2.0

package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepFuncLookup(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterStepFunc("noop", func(step Step) error { return nil })

	fn, err := registry.StepFunc("noop")
	require.NoError(t, err)
	assert.NoError(t, fn(nil))

	assert.True(t, registry.HasStepFunc("noop"))
	assert.False(t, registry.HasStepFunc("other"))
}

func TestStepFuncUnknownListsKnown(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterStepFunc("beta", func(step Step) error { return nil })
	registry.RegisterStepFunc("alpha", func(step Step) error { return nil })

	_, err := registry.StepFunc("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "[alpha beta]")
}

func TestVarFuncLookup(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterVarFunc("now", func() (string, error) { return "x", nil })

	fn, err := registry.VarFunc("now")
	require.NoError(t, err)
	value, err := fn()
	require.NoError(t, err)
	assert.Equal(t, "x", value)

	_, err = registry.VarFunc("missing")
	assert.Error(t, err)
	assert.True(t, registry.HasVarFunc("now"))
	assert.False(t, registry.HasVarFunc("missing"))
}
