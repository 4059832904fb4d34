// SPDX-License-Identifier: Apache-2.0

// Package release implements the checklist domain model: steps, step groups
// and the root release state with its per-version persistence.
package release

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v3"

	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/core/template"
	"github.com/relwiz/relwiz/internal/wizard/action"
	"github.com/relwiz/relwiz/internal/wizard/command"
	"github.com/relwiz/relwiz/internal/wizard/condition"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// StateFileName is the per-version persisted state file.
const StateFileName = "state.yaml"

// Well-known step ids the wizard derives release metadata from. The default
// checklist uses these ids; custom checklists that rename them simply lose
// the derived values.
const (
	PublishStepID  = "publish_maven"
	GPGStepID      = "gpg"
	AnnounceStepID = "announce"
)

// Release types.
const (
	TypeMajor  = "major"
	TypeMinor  = "minor"
	TypeBugfix = "bugfix"
)

// Runtime bundles the capabilities the checklist needs from its
// surroundings. It is constructed once at startup and passed explicitly;
// there are no ambient globals.
type Runtime struct {
	IO         console.IO
	Out        io.Writer
	Expander   *template.Expander
	Registry   *action.Registry
	Resolver   *vars.Resolver
	Conditions *condition.Evaluator
	DryRun     bool
}

// Options configures a new State.
type Options struct {
	Project        string
	DistURLBase    string
	ConfigRoot     string
	ReleaseVersion string
	ScriptVersion  string
	ScriptBranch   string
	Groups         []*StepGroup
	Runtime        *Runtime
}

// State is the root aggregate: release identity, the step group tree, RC
// history and persistence.
type State struct {
	Runtime *Runtime

	Project        string
	DistURLBase    string
	ConfigRoot     string
	ScriptVersion  string
	ScriptBranch   string
	ReleaseVersion string
	ReleaseType    string
	ReleaseBranch  string
	StartDate      int64
	RCNumber       int
	LatestVersion  string

	// PreviousRCs maps an RC label to the snapshot of step states taken
	// when that RC was abandoned. Append-only.
	PreviousRCs map[string]map[string]StepState

	Groups []*StepGroup

	major, minor, bugfix int
	steps                map[string]*Step
}

// stateFile is the persisted shape of a release's state.
type stateFile struct {
	ScriptVersion  string                          `yaml:"script_version"`
	ReleaseVersion string                          `yaml:"release_version"`
	StartDate      int64                           `yaml:"start_date"`
	RCNumber       int                             `yaml:"rc_number"`
	ScriptBranch   string                          `yaml:"script_branch"`
	Todos          map[string]StepState            `yaml:"todos"`
	PreviousRCs    map[string]map[string]StepState `yaml:"previous_rcs"`
	LatestVersion  string                          `yaml:"latest_version,omitempty"`
}

// New builds a State over the given step groups and derives the release
// type from the version.
func New(opts Options) (*State, error) {
	st := &State{
		Runtime:       opts.Runtime,
		Project:       opts.Project,
		DistURLBase:   opts.DistURLBase,
		ConfigRoot:    opts.ConfigRoot,
		ScriptVersion: opts.ScriptVersion,
		ScriptBranch:  opts.ScriptBranch,
		StartDate:     unixMillis(time.Now()),
		RCNumber:      1,
		PreviousRCs:   make(map[string]map[string]StepState),
		Groups:        opts.Groups,
	}

	if err := st.SetReleaseVersion(opts.ReleaseVersion); err != nil {
		return nil, err
	}

	st.steps = make(map[string]*Step)
	for _, g := range st.Groups {
		for _, s := range g.Todos {
			if _, exists := st.steps[s.ID]; exists {
				return nil, fmt.Errorf("duplicate step id: %s", s.ID)
			}
			st.steps[s.ID] = s
			if s.Commands != nil {
				for _, c := range s.Commands.Commands {
					c.Normalize()
				}
			}
		}
	}

	return st, nil
}

// SetReleaseVersion re-derives version parts, release type and branch names.
func (st *State) SetReleaseVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid release version %q: %w", version, err)
	}

	st.ReleaseVersion = version
	st.major = int(v.Major())
	st.minor = int(v.Minor())
	st.bugfix = int(v.Patch())
	st.ReleaseBranch = fmt.Sprintf("branch_%d_%d", st.major, st.minor)

	switch {
	case st.minor == 0 && st.bugfix == 0:
		st.ReleaseType = TypeMajor
	case st.bugfix == 0:
		st.ReleaseType = TypeMinor
	default:
		st.ReleaseType = TypeBugfix
	}
	return nil
}

// Validate performs the referential checks that must hold before the wizard
// starts: dependencies point at known ids, functions are registered,
// conditions type-check. Violations are fatal configuration errors.
func (st *State) Validate() error {
	known := func(id string) bool {
		if _, ok := st.steps[id]; ok {
			return true
		}
		return st.GroupByID(id) != nil
	}

	for _, g := range st.Groups {
		for _, dep := range g.Depends {
			if !known(dep) {
				return fmt.Errorf("group %s depends on unknown id %q", g.ID, dep)
			}
		}
		if g.Condition != "" && st.Runtime.Conditions != nil {
			if err := st.Runtime.Conditions.Check(g.Condition); err != nil {
				return fmt.Errorf("group %s: %w", g.ID, err)
			}
		}
		for _, s := range g.Todos {
			for _, dep := range s.Depends {
				if !known(dep) {
					return fmt.Errorf("step %s depends on unknown id %q", s.ID, dep)
				}
			}
			if s.Function != "" && !st.Runtime.Registry.HasStepFunc(s.Function) {
				return fmt.Errorf("step %s references unknown function %q", s.ID, s.Function)
			}
			for _, def := range s.Vars {
				if def.Function != "" && !st.Runtime.Registry.HasVarFunc(def.Function) {
					return fmt.Errorf("step %s: variable %s references unknown function %q", s.ID, def.Name, def.Function)
				}
			}
			if s.Condition != "" && st.Runtime.Conditions != nil {
				if err := st.Runtime.Conditions.Check(s.Condition); err != nil {
					return fmt.Errorf("step %s: %w", s.ID, err)
				}
			}
			for _, name := range template.References(s.Description + "\n" + s.PostDescription) {
				if !st.Runtime.Expander.HasTemplate(name) {
					return fmt.Errorf("step %s references unknown template %q", s.ID, name)
				}
			}
		}
	}
	return nil
}

// StepByID looks up a step; nil when unknown.
func (st *State) StepByID(id string) *Step {
	return st.steps[id]
}

// GroupByID looks up a group; nil when unknown.
func (st *State) GroupByID(id string) *StepGroup {
	for _, g := range st.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// TodoStates returns an independently owned copy of every step's state,
// keyed by step id.
func (st *State) TodoStates() map[string]StepState {
	out := make(map[string]StepState, len(st.steps))
	for id, s := range st.steps {
		out[id] = s.State.Clone()
	}
	return out
}

// Folder layout: <root>/<version> holds everything for one release,
// <root>/<version>/RC<n> everything for one candidate.

// ReleaseFolder returns (and creates) the per-version folder.
func (st *State) ReleaseFolder() string {
	folder := filepath.Join(st.ConfigRoot, st.ReleaseVersion)
	ensureFolder(folder)
	return folder
}

// RCFolder returns (and creates) the per-candidate folder.
func (st *State) RCFolder() string {
	folder := filepath.Join(st.ReleaseFolder(), fmt.Sprintf("RC%d", st.RCNumber))
	ensureFolder(folder)
	return folder
}

// DistFolder is where RC artifacts are staged.
func (st *State) DistFolder() string {
	return filepath.Join(st.RCFolder(), "dist")
}

// GitCheckoutFolder is the project checkout used for building the RC.
func (st *State) GitCheckoutFolder() string {
	return filepath.Join(st.ReleaseFolder(), st.Project)
}

// WebsiteGitFolder is the website checkout used for publishing.
func (st *State) WebsiteGitFolder() string {
	return filepath.Join(st.ReleaseFolder(), st.Project+"-site")
}

// StableBranchName is the long-lived branch for the current major line.
func (st *State) StableBranchName() string {
	return fmt.Sprintf("branch_%dx", st.major)
}

// MinorBranchName is the branch of the latest minor release, when known.
func (st *State) MinorBranchName() string {
	if st.LatestVersion != "" {
		if v, err := semver.NewVersion(st.LatestVersion); err == nil {
			return fmt.Sprintf("branch_%d_%d", v.Major(), v.Minor())
		}
	}
	return st.ReleaseBranch
}

// BaseBranchName is the branch this release branches off from.
func (st *State) BaseBranchName() string {
	switch st.ReleaseType {
	case TypeMajor:
		return "main"
	case TypeMinor:
		return st.StableBranchName()
	default:
		if st.LatestVersion != "" {
			if v, err := semver.NewVersion(st.LatestVersion); err == nil && int(v.Major()) == st.major {
				return st.MinorBranchName()
			}
		}
		return st.ReleaseBranch
	}
}

// NextVersion is the version that development continues on after this
// release.
func (st *State) NextVersion() string {
	switch st.ReleaseType {
	case TypeMajor:
		return fmt.Sprintf("%d.0.0", st.major+1)
	case TypeMinor:
		return fmt.Sprintf("%d.%d.0", st.major, st.minor+1)
	default:
		return fmt.Sprintf("%d.%d.%d", st.major, st.minor, st.bugfix+1)
	}
}

// ReleaseDate is the completion time of the publish step, zero until then.
func (st *State) ReleaseDate() time.Time {
	if s := st.StepByID(PublishStepID); s != nil && s.IsDone() && s.State.DoneDate != 0 {
		return time.UnixMilli(s.State.DoneDate).UTC()
	}
	return time.Time{}
}

// ReleaseDateISO renders the release date as yyyy-mm-dd, with a placeholder
// before publishing.
func (st *State) ReleaseDateISO() string {
	date := st.ReleaseDate()
	if date.IsZero() {
		return "yyyy-mm-dd"
	}
	return date.Format("2006-01-02")
}

// GPGKey is the signing key id registered by the gpg step, empty until that
// step is done.
func (st *State) GPGKey() string {
	if s := st.StepByID(GPGStepID); s != nil && s.IsDone() {
		if key, ok := s.StateVar("gpg_key"); ok {
			return key
		}
	}
	return ""
}

// IsReleased reports whether the release has been announced.
func (st *State) IsReleased() bool {
	s := st.StepByID(AnnounceStepID)
	return s != nil && s.IsDone()
}

// TemplateContext assembles the release-derived global values every render
// sees, including all step states keyed by step id.
func (st *State) TemplateContext() map[string]interface{} {
	ctx := map[string]interface{}{
		"project":                    st.Project,
		"script_version":             st.ScriptVersion,
		"script_branch":              st.ScriptBranch,
		"release_version":            st.ReleaseVersion,
		"release_version_underscore": strings.ReplaceAll(st.ReleaseVersion, ".", "_"),
		"release_version_major":      st.major,
		"release_version_minor":      st.minor,
		"release_version_bugfix":     st.bugfix,
		"release_type":               st.ReleaseType,
		"is_feature_release":         st.ReleaseType == TypeMajor || st.ReleaseType == TypeMinor,
		"rc_number":                  st.RCNumber,
		"config_root":                st.ConfigRoot,
		"release_folder":             st.ReleaseFolder(),
		"rc_folder":                  st.RCFolder(),
		"dist_folder":                st.DistFolder(),
		"git_checkout_folder":        st.GitCheckoutFolder(),
		"git_website_folder":         st.WebsiteGitFolder(),
		"dist_url_base":              st.DistURLBase,
		"release_branch":             st.ReleaseBranch,
		"stable_branch":              st.StableBranchName(),
		"base_branch":                st.BaseBranchName(),
		"next_version":               st.NextVersion(),
		"release_date":               st.ReleaseDate(),
		"release_date_iso":           st.ReleaseDateISO(),
		"gpg_key":                    st.GPGKey(),
		"latest_version":             st.LatestVersion,
		"start_date":                 st.StartDate,
		"epoch":                      unixMillis(time.Now()),
		"home":                       format.HomeDir(),
	}
	for id, state := range st.TodoStates() {
		ctx[id] = state.AsMap()
	}
	return ctx
}

// statePath is the per-version state file location.
func (st *State) statePath() string {
	return filepath.Join(st.ConfigRoot, st.ReleaseVersion, StateFileName)
}

// Load merges a previously saved state file into the step tree. A missing
// file is not an error; unknown step ids produce a warning and are skipped.
func (st *State) Load() error {
	path := st.statePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading state file: %w", err)
	}

	var file stateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		fmt.Printf("Warning: failed to load state from %s: %v\n", path, err)
		return nil
	}

	if file.ReleaseVersion != "" && file.ReleaseVersion != st.ReleaseVersion {
		fmt.Printf("Warning: state file %s is for version %s, expected %s\n", path, file.ReleaseVersion, st.ReleaseVersion)
	}

	if file.ScriptVersion != "" {
		st.ScriptVersion = file.ScriptVersion
	}
	if file.StartDate != 0 {
		st.StartDate = file.StartDate
	}
	if file.RCNumber != 0 {
		st.RCNumber = file.RCNumber
	}
	if file.ScriptBranch != "" {
		st.ScriptBranch = file.ScriptBranch
	}
	st.LatestVersion = file.LatestVersion
	st.PreviousRCs = make(map[string]map[string]StepState, len(file.PreviousRCs))
	for label, snapshot := range file.PreviousRCs {
		st.PreviousRCs[label] = cloneSnapshot(snapshot)
	}

	for id, stepState := range file.Todos {
		step, ok := st.steps[id]
		if !ok {
			fmt.Printf("Warning: could not restore state for %s, step definition not found\n", id)
			continue
		}
		step.State = stepState.Clone()
	}

	fmt.Printf("Loaded state from %s\n", path)
	return nil
}

// Save writes the full release state to the per-version state file,
// creating directories as needed. Called after every mutating operation.
func (st *State) Save() error {
	folder := filepath.Join(st.ConfigRoot, st.ReleaseVersion)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("error creating state folder: %w", err)
	}

	file := stateFile{
		ScriptVersion:  st.ScriptVersion,
		ReleaseVersion: st.ReleaseVersion,
		StartDate:      st.StartDate,
		RCNumber:       st.RCNumber,
		ScriptBranch:   st.ScriptBranch,
		Todos:          st.TodoStates(),
		PreviousRCs:    make(map[string]map[string]StepState, len(st.PreviousRCs)),
		LatestVersion:  st.LatestVersion,
	}
	for label, snapshot := range st.PreviousRCs {
		file.PreviousRCs[label] = cloneSnapshot(snapshot)
	}

	return format.AtomicWriteYAML(st.statePath(), &file)
}

// StartNewRC archives the state of every applicable in-RC-loop step under
// the current RC label, clears those steps and increments the RC number.
func (st *State) StartNewRC() error {
	snapshot := make(map[string]StepState)
	for _, g := range st.Groups {
		if !g.InRCLoop {
			continue
		}
		for _, s := range g.Todos {
			if s.Applies(st) {
				snapshot[s.ID] = s.State.Clone()
				s.Clear()
			}
		}
	}
	st.PreviousRCs[fmt.Sprintf("RC%d", st.RCNumber)] = snapshot
	st.RCNumber++
	return st.Save()
}

// ClearCurrentRC voids the current RC: in-RC-loop steps are cleared without
// archiving, and the RC folder is removed.
func (st *State) ClearCurrentRC() error {
	rcFolder := st.RCFolder()
	for _, g := range st.Groups {
		if !g.InRCLoop {
			continue
		}
		for _, s := range g.Todos {
			s.Clear()
		}
	}
	if err := os.RemoveAll(rcFolder); err != nil {
		fmt.Printf("Warning: failed to clear %s, please do it manually: %v\n", rcFolder, err)
	}
	return st.Save()
}

// FullReset clears all history and every step's state and resets the RC
// number to 1.
func (st *State) FullReset() error {
	st.PreviousRCs = make(map[string]map[string]StepState)
	st.RCNumber = 1
	for _, s := range st.steps {
		s.Clear()
	}
	return st.Save()
}

// CurrentGitBranch reports the branch the wizard itself runs from.
func CurrentGitBranch() string {
	out, err := command.Capture(command.ProcSpec{Command: "git rev-parse --abbrev-ref HEAD"})
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func cloneSnapshot(snapshot map[string]StepState) map[string]StepState {
	out := make(map[string]StepState, len(snapshot))
	for id, state := range snapshot {
		out[id] = state.Clone()
	}
	return out
}

func ensureFolder(folder string) {
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.MkdirAll(folder, 0755); err != nil {
			fmt.Printf("Warning: error creating folder %s: %v\n", folder, err)
		}
	}
}

func unixMillis(t time.Time) int64 {
	return t.UnixMilli()
}
