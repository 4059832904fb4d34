// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/relwiz/relwiz/internal/core/config"
	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/core/template"
	"github.com/relwiz/relwiz/internal/version"
	"github.com/relwiz/relwiz/internal/wizard/action"
	"github.com/relwiz/relwiz/internal/wizard/command"
	"github.com/relwiz/relwiz/internal/wizard/condition"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/release"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// loadDefinition reads the checklist from --config, falling back to the
// embedded default.
func loadDefinition() (*config.Definition, error) {
	if configFlag != "" {
		return config.Load(format.ExpandHome(configFlag))
	}
	return config.LoadDefault()
}

// newState wires the runtime (console, templates, conditions, actions) and
// builds a validated release state over the definition's groups. The state
// is not loaded from disk here.
func newState(def *config.Definition, releaseVersion string) (*release.State, error) {
	expander := template.New(def.Templates)
	conditions, err := condition.NewEvaluator()
	if err != nil {
		return nil, err
	}

	registry := action.NewRegistry()
	resolver := vars.NewResolver(registry, expander)
	rt := &release.Runtime{
		IO:         console.NewTerminal(),
		Out:        os.Stdout,
		Expander:   expander,
		Registry:   registry,
		Resolver:   resolver,
		Conditions: conditions,
		DryRun:     dryRunFlag,
	}

	var st *release.State
	registerDefaults(registry, func() *release.State { return st })

	st, err = release.New(release.Options{
		Project:        def.Project,
		DistURLBase:    def.DistURLBase,
		ConfigRoot:     stateRoot(),
		ReleaseVersion: releaseVersion,
		ScriptVersion:  version.Version,
		ScriptBranch:   release.CurrentGitBranch(),
		Groups:         def.Groups,
		Runtime:        rt,
	})
	if err != nil {
		return nil, err
	}

	expander.SetBaseContext(func() map[string]interface{} {
		return st.TemplateContext()
	})

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// buildState loads the definition, builds the state and merges previously
// saved progress for the release version.
func buildState(releaseVersion string) (*release.State, *config.Definition, error) {
	def, err := loadDefinition()
	if err != nil {
		return nil, nil, err
	}

	st, err := newState(def, releaseVersion)
	if err != nil {
		return nil, nil, err
	}

	if err := st.Load(); err != nil {
		return nil, nil, err
	}
	if latestVersionFlag != "" {
		st.LatestVersion = latestVersionFlag
	}
	return st, def, nil
}

// registerDefaults installs the step actions and variable functions the
// built-in checklist references. The state accessor is late-bound because
// the registry must exist before the state does.
func registerDefaults(registry *action.Registry, state func() *release.State) {
	registry.RegisterVarFunc("vote_close_72h", func() (string, error) {
		// 72 hours plus an hour of slack, so the deadline in the vote mail
		// is safe to take literally.
		return time.Now().UTC().Add(73 * time.Hour).Format("2006-01-02 15:04") + " UTC", nil
	})

	registry.RegisterVarFunc("current_git_rev", func() (string, error) {
		st := state()
		if st == nil {
			return "", fmt.Errorf("release state not initialized")
		}
		out, err := command.Capture(command.ProcSpec{
			Command: "git rev-parse HEAD",
			Dir:     st.GitCheckoutFolder(),
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	})

	registry.RegisterStepFunc("save_announcement", func(step action.Step) error {
		st := state()
		if st == nil {
			return fmt.Errorf("release state not initialized")
		}
		text := st.Runtime.Expander.Render("(( template=announce_mail ))", nil)
		path := filepath.Join(st.ReleaseFolder(), "announce.txt")
		if err := format.AtomicWriteRaw(path, []byte(text)); err != nil {
			return fmt.Errorf("error writing announcement: %w", err)
		}
		step.SetStateVar("announcement_file", path)
		st.Runtime.IO.Printf("Wrote announcement mail to %s\n\n", format.AbbreviateHome(path))
		return nil
	})
}

// checkPrerequisites warns about missing tools named by the definition.
func checkPrerequisites(def *config.Definition, io console.IO) {
	for _, tool := range def.Prerequisites {
		if _, err := exec.LookPath(tool); err != nil {
			io.Printf("Warning: required tool %q not found in PATH\n", tool)
		}
	}
}
