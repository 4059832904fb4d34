// SPDX-License-Identifier: Apache-2.0

package release

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwiz/relwiz/internal/core/template"
	"github.com/relwiz/relwiz/internal/testutil"
	"github.com/relwiz/relwiz/internal/wizard/action"
	"github.com/relwiz/relwiz/internal/wizard/condition"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

func testRuntime(io console.IO) *Runtime {
	expander := template.New(nil)
	registry := action.NewRegistry()
	conditions, err := condition.NewEvaluator()
	if err != nil {
		panic(err)
	}
	return &Runtime{
		IO:         io,
		Out:        &bytes.Buffer{},
		Expander:   expander,
		Registry:   registry,
		Resolver:   vars.NewResolver(registry, expander),
		Conditions: conditions,
	}
}

// testGroups builds a small checklist: a prerequisites group and an
// in-RC-loop build group with one bugfix-only step.
func testGroups() []*StepGroup {
	return []*StepGroup{
		{
			ID:    "prep",
			Title: "Preparation",
			Todos: []*Step{
				{ID: "gpg", Title: "Set up signing key"},
				{ID: "branch", Title: "Create branch"},
			},
		},
		{
			ID:       "build",
			Title:    "Build candidate",
			InRCLoop: true,
			Depends:  StringList{"prep"},
			Todos: []*Step{
				{ID: "compile", Title: "Compile"},
				{ID: "backport", Title: "Backport fixes", Types: []string{"bugfix"}},
			},
		},
	}
}

func newTestState(t *testing.T, io console.IO, version string, groups []*StepGroup) *State {
	t.Helper()
	rt := testRuntime(io)
	st, err := New(Options{
		Project:        "demo",
		DistURLBase:    "https://dist.example.org/demo",
		ConfigRoot:     t.TempDir(),
		ReleaseVersion: version,
		ScriptVersion:  "0.0.1",
		Groups:         groups,
		Runtime:        rt,
	})
	require.NoError(t, err)
	rt.Expander.SetBaseContext(func() map[string]interface{} {
		return st.TemplateContext()
	})
	return st
}

func TestReleaseTypeDerivation(t *testing.T) {
	tests := []struct {
		version       string
		releaseType   string
		releaseBranch string
		nextVersion   string
		baseBranch    string
	}{
		{"9.0.0", TypeMajor, "branch_9_0", "10.0.0", "main"},
		{"9.1.0", TypeMinor, "branch_9_1", "9.2.0", "branch_9x"},
		{"9.1.2", TypeBugfix, "branch_9_1", "9.1.3", "branch_9_1"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			st := newTestState(t, testutil.NewScriptedConsole(), tt.version, testGroups())
			assert.Equal(t, tt.releaseType, st.ReleaseType)
			assert.Equal(t, tt.releaseBranch, st.ReleaseBranch)
			assert.Equal(t, tt.nextVersion, st.NextVersion())
			assert.Equal(t, tt.baseBranch, st.BaseBranchName())
		})
	}
}

func TestBugfixBaseBranchFollowsLatestVersion(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "9.1.2", testGroups())

	// Same major line as the latest release: base off the latest minor branch
	st.LatestVersion = "9.4.0"
	assert.Equal(t, "branch_9_4", st.BaseBranchName())
	assert.Equal(t, "branch_9_4", st.MinorBranchName())

	// Different major line: stick to the release branch
	st.LatestVersion = "10.0.0"
	assert.Equal(t, "branch_9_1", st.BaseBranchName())
}

func TestNewRejectsInvalidVersion(t *testing.T) {
	rt := testRuntime(testutil.NewScriptedConsole())
	_, err := New(Options{ReleaseVersion: "not-a-version", Groups: testGroups(), Runtime: rt})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateStepIDs(t *testing.T) {
	groups := testGroups()
	groups[1].Todos[0].ID = "gpg"

	rt := testRuntime(testutil.NewScriptedConsole())
	_, err := New(Options{ReleaseVersion: "1.0.0", Groups: groups, Runtime: rt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestValidate(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	assert.NoError(t, st.Validate())

	t.Run("unknown dependency", func(t *testing.T) {
		groups := testGroups()
		groups[0].Todos[0].Depends = StringList{"nope"}
		st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)
		err := st.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown id")
	})

	t.Run("unknown function", func(t *testing.T) {
		groups := testGroups()
		groups[0].Todos[0].Function = "nope"
		st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)
		err := st.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown function")
	})

	t.Run("unknown variable function", func(t *testing.T) {
		groups := testGroups()
		groups[0].Todos[0].Vars = vars.Ordered{{Name: "v", Function: "nope"}}
		st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)
		assert.Error(t, st.Validate())
	})

	t.Run("unknown template reference", func(t *testing.T) {
		groups := testGroups()
		groups[0].Todos[0].Description = "(( template=missing_mail ))"
		st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)
		err := st.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown template")
	})

	t.Run("broken condition", func(t *testing.T) {
		groups := testGroups()
		groups[0].Todos[0].Condition = "release.rc_number =="
		st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)
		assert.Error(t, st.Validate())
	})
}

func TestMarkDonePersistsVars(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	step := st.StepByID("gpg")
	step.Vars = vars.Ordered{{Name: "key_id", Literal: "ABCD1234"}}
	step.PersistVars = []string{"key_id"}

	step.MarkDone(st, true)
	assert.True(t, step.IsDone())
	assert.NotZero(t, step.State.DoneDate)
	value, ok := step.StateVar("key_id")
	assert.True(t, ok)
	assert.Equal(t, "ABCD1234", value)

	step.MarkDone(st, false)
	assert.False(t, step.IsDone())
	assert.True(t, step.State.IsEmpty())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "2.3.0", testGroups())
	st.StepByID("gpg").MarkDone(st, true)
	st.StepByID("gpg").SetStateVar("gpg_key", "ABCD1234")
	st.StepByID("compile").MarkDone(st, true)
	st.RCNumber = 3
	require.NoError(t, st.Save())

	// Fresh state over a fresh group tree, same root
	rt := testRuntime(testutil.NewScriptedConsole())
	restored, err := New(Options{
		Project:        "demo",
		ConfigRoot:     st.ConfigRoot,
		ReleaseVersion: "2.3.0",
		ScriptVersion:  "0.0.1",
		Groups:         testGroups(),
		Runtime:        rt,
	})
	require.NoError(t, err)
	require.NoError(t, restored.Load())

	assert.Equal(t, 3, restored.RCNumber)
	assert.True(t, restored.StepByID("gpg").IsDone())
	assert.True(t, restored.StepByID("compile").IsDone())
	assert.False(t, restored.StepByID("branch").IsDone())
	key, ok := restored.StepByID("gpg").StateVar("gpg_key")
	assert.True(t, ok)
	assert.Equal(t, "ABCD1234", key)
	assert.Equal(t, st.TodoStates(), restored.TodoStates())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	assert.NoError(t, st.Load())
}

func TestLoadSkipsUnknownStepIDs(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	path := filepath.Join(st.ConfigRoot, "1.0.0", StateFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`
release_version: 1.0.0
rc_number: 2
todos:
  gpg:
    done: true
  removed_step:
    done: true
`), 0644))

	require.NoError(t, st.Load())
	assert.Equal(t, 2, st.RCNumber)
	assert.True(t, st.StepByID("gpg").IsDone())
}

func TestStartNewRC(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	st.StepByID("gpg").MarkDone(st, true)
	st.StepByID("compile").MarkDone(st, true)
	st.StepByID("compile").SetStateVar("build_id", "42")

	require.NoError(t, st.StartNewRC())

	assert.Equal(t, 2, st.RCNumber)

	// In-RC-loop steps are cleared, others survive
	assert.False(t, st.StepByID("compile").IsDone())
	assert.True(t, st.StepByID("gpg").IsDone())

	// The abandoned candidate's progress is archived
	snapshot, ok := st.PreviousRCs["RC1"]
	require.True(t, ok)
	assert.True(t, snapshot["compile"].Done)
	assert.Equal(t, "42", snapshot["compile"].Vars["build_id"])

	// The bugfix-only step does not apply to a major release, so it is not
	// part of the snapshot
	_, ok = snapshot["backport"]
	assert.False(t, ok)
}

func TestStartNewRCSnapshotIsIndependent(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	st.StepByID("compile").SetStateVar("build_id", "42")
	require.NoError(t, st.StartNewRC())

	st.StepByID("compile").SetStateVar("build_id", "later")
	assert.Equal(t, "42", st.PreviousRCs["RC1"]["compile"].Vars["build_id"])
}

func TestClearCurrentRC(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	st.StepByID("gpg").MarkDone(st, true)
	st.StepByID("compile").MarkDone(st, true)

	marker := filepath.Join(st.RCFolder(), "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	require.NoError(t, st.ClearCurrentRC())

	assert.Equal(t, 1, st.RCNumber)
	assert.False(t, st.StepByID("compile").IsDone())
	assert.True(t, st.StepByID("gpg").IsDone())
	assert.Empty(t, st.PreviousRCs)
	assert.NoFileExists(t, marker)
}

func TestFullReset(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", testGroups())
	st.StepByID("gpg").MarkDone(st, true)
	st.StepByID("compile").MarkDone(st, true)
	require.NoError(t, st.StartNewRC())

	require.NoError(t, st.FullReset())

	assert.Equal(t, 1, st.RCNumber)
	assert.Empty(t, st.PreviousRCs)
	for _, g := range st.Groups {
		for _, s := range g.Todos {
			assert.False(t, s.IsDone())
		}
	}
}

func TestTemplateContext(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "9.1.0", testGroups())
	st.StepByID("gpg").SetStateVar("gpg_key", "ABCD1234")

	ctx := st.TemplateContext()
	assert.Equal(t, "demo", ctx["project"])
	assert.Equal(t, "9.1.0", ctx["release_version"])
	assert.Equal(t, "9_1_0", ctx["release_version_underscore"])
	assert.Equal(t, TypeMinor, ctx["release_type"])
	assert.Equal(t, true, ctx["is_feature_release"])
	assert.Equal(t, 1, ctx["rc_number"])
	assert.Equal(t, "branch_9_1", ctx["release_branch"])
	assert.Equal(t, "yyyy-mm-dd", ctx["release_date_iso"])

	gpgState, ok := ctx["gpg"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ABCD1234", gpgState["gpg_key"])
}

func TestGPGKeyAndReleaseMetadata(t *testing.T) {
	groups := []*StepGroup{{
		ID:    "all",
		Title: "All",
		Todos: []*Step{
			{ID: GPGStepID, Title: "Key"},
			{ID: PublishStepID, Title: "Publish"},
			{ID: AnnounceStepID, Title: "Announce"},
		},
	}}
	st := newTestState(t, testutil.NewScriptedConsole(), "1.0.0", groups)

	assert.Empty(t, st.GPGKey())
	assert.True(t, st.ReleaseDate().IsZero())
	assert.False(t, st.IsReleased())

	gpg := st.StepByID(GPGStepID)
	gpg.SetStateVar("gpg_key", "ABCD1234")
	gpg.MarkDone(st, true)
	st.StepByID(PublishStepID).MarkDone(st, true)
	st.StepByID(AnnounceStepID).MarkDone(st, true)

	assert.Equal(t, "ABCD1234", st.GPGKey())
	assert.False(t, st.ReleaseDate().IsZero())
	assert.NotEqual(t, "yyyy-mm-dd", st.ReleaseDateISO())
	assert.True(t, st.IsReleased())
}

func TestFolderLayout(t *testing.T) {
	st := newTestState(t, testutil.NewScriptedConsole(), "1.2.0", testGroups())

	assert.Equal(t, filepath.Join(st.ConfigRoot, "1.2.0"), st.ReleaseFolder())
	assert.Equal(t, filepath.Join(st.ConfigRoot, "1.2.0", "RC1"), st.RCFolder())
	assert.DirExists(t, st.RCFolder())
	assert.Equal(t, filepath.Join(st.RCFolder(), "dist"), st.DistFolder())
	assert.Equal(t, filepath.Join(st.ReleaseFolder(), "demo"), st.GitCheckoutFolder())
	assert.Equal(t, filepath.Join(st.ReleaseFolder(), "demo-site"), st.WebsiteGitFolder())
}
