//go:build integration
// +build integration

// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwiz/relwiz/internal/core/config"
	"github.com/relwiz/relwiz/internal/core/template"
	"github.com/relwiz/relwiz/internal/testutil"
	"github.com/relwiz/relwiz/internal/version"
	"github.com/relwiz/relwiz/internal/wizard/action"
	"github.com/relwiz/relwiz/internal/wizard/condition"
	"github.com/relwiz/relwiz/internal/wizard/release"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// buildWorkflowState wires a full release state over the embedded default
// checklist, with stubbed variable functions and a scripted console.
func buildWorkflowState(t *testing.T, root string, io *testutil.ScriptedConsole, releaseVersion string) *release.State {
	t.Helper()

	def, err := config.LoadDefault()
	require.NoError(t, err)

	expander := template.New(def.Templates)
	conditions, err := condition.NewEvaluator()
	require.NoError(t, err)

	registry := action.NewRegistry()
	registry.RegisterVarFunc("vote_close_72h", func() (string, error) {
		return "2026-09-01 12:00 UTC", nil
	})
	registry.RegisterVarFunc("current_git_rev", func() (string, error) {
		return "deadbeef", nil
	})
	registry.RegisterStepFunc("save_announcement", func(step action.Step) error {
		step.SetStateVar("announcement_file", "announce.txt")
		return nil
	})

	rt := &release.Runtime{
		IO:         io,
		Out:        &bytes.Buffer{},
		Expander:   expander,
		Registry:   registry,
		Resolver:   vars.NewResolver(registry, expander),
		Conditions: conditions,
	}

	st, err := release.New(release.Options{
		Project:        def.Project,
		DistURLBase:    def.DistURLBase,
		ConfigRoot:     root,
		ReleaseVersion: releaseVersion,
		ScriptVersion:  version.Version,
		Groups:         def.Groups,
		Runtime:        rt,
	})
	require.NoError(t, err)

	expander.SetBaseContext(func() map[string]interface{} {
		return st.TemplateContext()
	})
	require.NoError(t, st.Validate())
	return st
}

// TestReleaseWorkflow walks the embedded checklist end-to-end: completing
// steps, persisting state, resuming and starting a new release candidate.
func TestReleaseWorkflow(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("RELWIZ_HOME", tempDir)
	root := filepath.Join(tempDir, "releases")

	t.Run("DefaultChecklistValidates", func(t *testing.T) {
		io := testutil.NewScriptedConsole()
		st := buildWorkflowState(t, root, io, "2.1.0")
		assert.Equal(t, "minor", st.ReleaseType)
		assert.Equal(t, "branch_2_1", st.ReleaseBranch)
		fmt.Printf("✓ Default checklist validated for %s %s\n", st.Project, st.ReleaseVersion)
	})

	t.Run("CompleteStepsAndPersist", func(t *testing.T) {
		io := testutil.NewScriptedConsole()
		st := buildWorkflowState(t, root, io, "2.1.0")

		// Read the docs, then register the signing key
		io.AnswerConfirm(true)
		st.StepByID("read_up").Activate(st)
		require.True(t, st.StepByID("read_up").IsDone())

		io.AnswerPrompt("ABCD1234")
		io.AnswerConfirm(true)
		st.StepByID("gpg").Activate(st)
		require.True(t, st.StepByID("gpg").IsDone())
		assert.Equal(t, "ABCD1234", st.GPGKey())

		fmt.Printf("✓ Completed prerequisite steps, gpg key %s\n", st.GPGKey())
	})

	t.Run("ResumeFromDisk", func(t *testing.T) {
		io := testutil.NewScriptedConsole()
		st := buildWorkflowState(t, root, io, "2.1.0")
		require.NoError(t, st.Load())

		assert.True(t, st.StepByID("read_up").IsDone())
		assert.True(t, st.StepByID("gpg").IsDone())
		assert.Equal(t, "ABCD1234", st.GPGKey())

		// The gpg key flows into templated titles
		title := st.StepByID("sign_artifacts").RenderedTitle(st)
		assert.Contains(t, title, "ABCD1234")

		fmt.Printf("✓ Resumed release from %s\n", root)
	})

	t.Run("NewReleaseCandidate", func(t *testing.T) {
		io := testutil.NewScriptedConsole()
		st := buildWorkflowState(t, root, io, "2.1.0")
		require.NoError(t, st.Load())

		st.StepByID("clean_workspace").State = release.StepState{Done: true, DoneDate: 1}
		require.NoError(t, st.StartNewRC())

		assert.Equal(t, 2, st.RCNumber)
		assert.False(t, st.StepByID("clean_workspace").IsDone())
		assert.True(t, st.StepByID("gpg").IsDone())
		assert.True(t, st.PreviousRCs["RC1"]["clean_workspace"].Done)

		fmt.Printf("✓ Started RC%d, RC1 archived\n", st.RCNumber)
	})
}
