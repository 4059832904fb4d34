// SPDX-License-Identifier: Apache-2.0

package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	release := map[string]interface{}{
		"release_type":       "minor",
		"rc_number":          2,
		"is_feature_release": true,
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"type match", `release.release_type == "minor"`, true},
		{"type mismatch", `release.release_type == "major"`, false},
		{"numeric comparison", `release.rc_number > 1`, true},
		{"boolean field", `release.is_feature_release`, true},
		{"negation", `!release.is_feature_release`, false},
		{"conjunction", `release.release_type != "bugfix" && release.rc_number >= 2`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.Evaluate(tt.expression, release)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateParseError(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	_, err = evaluator.Evaluate(`release.release_type ==`, nil)
	assert.Error(t, err)
}

func TestEvaluateNonBoolean(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	_, err = evaluator.Evaluate(`release.rc_number`, map[string]interface{}{"rc_number": 3})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}

func TestCheck(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	assert.NoError(t, evaluator.Check(`release.release_type == "major"`))
	assert.Error(t, evaluator.Check(`release.release_type ==`))
	assert.Error(t, evaluator.Check(`unknown_var == 1`))
}
