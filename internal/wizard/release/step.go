// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relwiz/relwiz/internal/wizard/command"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// StepState is the persisted completion state of one step: the fixed
// done/done_date pair plus the open set of persisted variables. It
// marshals to the flat {done, done_date, ...vars} map shape of the state
// file.
type StepState struct {
	Done     bool
	DoneDate int64
	Vars     map[string]string
}

// Clone returns an independently owned copy, safe to archive in RC history.
func (s StepState) Clone() StepState {
	out := StepState{Done: s.Done, DoneDate: s.DoneDate}
	if s.Vars != nil {
		out.Vars = make(map[string]string, len(s.Vars))
		for k, v := range s.Vars {
			out.Vars[k] = v
		}
	}
	return out
}

// IsEmpty reports whether the state carries no information at all.
func (s StepState) IsEmpty() bool {
	return !s.Done && s.DoneDate == 0 && len(s.Vars) == 0
}

// AsMap flattens the state for template contexts: step descriptions refer
// to persisted variables as {{ .step_id.var }}.
func (s StepState) AsMap() map[string]interface{} {
	out := make(map[string]interface{}, len(s.Vars)+2)
	for k, v := range s.Vars {
		out[k] = v
	}
	out["done"] = s.Done
	out["done_date"] = s.DoneDate
	return out
}

// MarshalYAML emits the flat map form with a stable key order.
func (s StepState) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendPair := func(key string, value interface{}) error {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(value); err != nil {
			return err
		}
		node.Content = append(node.Content, keyNode, valNode)
		return nil
	}

	if err := appendPair("done", s.Done); err != nil {
		return nil, err
	}
	if s.DoneDate != 0 {
		if err := appendPair("done_date", s.DoneDate); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(s.Vars))
	for name := range s.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := appendPair(name, s.Vars[name]); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// UnmarshalYAML accepts the flat map form, tolerating unknown keys by
// folding them into the variable set.
func (s *StepState) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*s = StepState{}
	for key, value := range raw {
		switch key {
		case "done":
			if done, ok := value.(bool); ok {
				s.Done = done
			}
		case "done_date":
			switch d := value.(type) {
			case int:
				s.DoneDate = int64(d)
			case int64:
				s.DoneDate = d
			}
		default:
			if s.Vars == nil {
				s.Vars = make(map[string]string)
			}
			s.Vars[key] = fmt.Sprintf("%v", value)
		}
	}
	return nil
}

// StringList accepts either a single scalar or a sequence in YAML, for
// fields like depends that allow both forms.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("expected string or list of strings")
	}
}

// UserInput is a typed prompt whose answer is stored into step state.
type UserInput struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
	Type   string `yaml:"type,omitempty"`
}

// Run prompts the operator, re-prompting on conversion failure, and returns
// the answer in string form.
func (u *UserInput) Run(io console.IO) string {
	if u.Type == "int" {
		return strconv.Itoa(io.PromptInt(u.Prompt))
	}
	return io.Prompt(u.Prompt)
}

// Step is one checklist item with persisted completion state.
type Step struct {
	ID              string         `yaml:"id"`
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description,omitempty"`
	PostDescription string         `yaml:"post_description,omitempty"`
	Types           []string       `yaml:"types,omitempty"`
	Condition       string         `yaml:"condition,omitempty"`
	Function        string         `yaml:"function,omitempty"`
	Links           []string       `yaml:"links,omitempty"`
	Depends         StringList     `yaml:"depends,omitempty"`
	Vars            vars.Ordered   `yaml:"vars,omitempty"`
	PersistVars     []string       `yaml:"persist_vars,omitempty"`
	UserInput       []*UserInput   `yaml:"user_input,omitempty"`
	Commands        *command.Group `yaml:"commands,omitempty"`

	State StepState `yaml:"-"`
}

// StepID implements action.Step.
func (s *Step) StepID() string { return s.ID }

// IsDone reports whether the step is marked completed.
func (s *Step) IsDone() bool { return s.State.Done }

// StateVar implements action.Step.
func (s *Step) StateVar(name string) (string, bool) {
	value, ok := s.State.Vars[name]
	return value, ok
}

// SetStateVar implements action.Step.
func (s *Step) SetStateVar(name, value string) {
	if s.State.Vars == nil {
		s.State.Vars = make(map[string]string)
	}
	s.State.Vars[name] = value
}

// Clear wipes the step's state entirely.
func (s *Step) Clear() {
	s.State = StepState{}
}

// MarkDone sets the completion state. Marking done stamps done_date and
// snapshots the persist-list variables from the current resolved variables;
// marking not-done wipes the state.
func (s *Step) MarkDone(st *State, done bool) {
	if done {
		s.State.Done = true
		s.State.DoneDate = unixMillis(time.Now())
		if len(s.PersistVars) > 0 {
			resolved := s.ResolveVars(st)
			for _, name := range s.PersistVars {
				if value, ok := resolved[name]; ok {
					s.SetStateVar(name, value)
				}
			}
		}
	} else {
		s.Clear()
	}
}

// Applies reports whether the step is relevant for the current release:
// the types filter must match (empty matches all) and the optional CEL
// condition must hold. A condition evaluation error is reported and the
// step treated as applicable.
func (s *Step) Applies(st *State) bool {
	if len(s.Types) > 0 {
		match := false
		for _, t := range s.Types {
			if t == st.ReleaseType {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if s.Condition != "" && st.Runtime.Conditions != nil {
		ok, err := st.Runtime.Conditions.Evaluate(s.Condition, st.TemplateContext())
		if err != nil {
			fmt.Printf("Warning: condition for step %s failed: %v\n", s.ID, err)
			return true
		}
		return ok
	}
	return true
}

// ResolveVars resolves the step's declared variables, fresh on every call.
func (s *Step) ResolveVars(st *State) map[string]string {
	return st.Runtime.Resolver.Resolve(s.Vars)
}

// VarsAndState merges resolved variables with the persisted state map;
// state wins so persisted values survive definition edits.
func (s *Step) VarsAndState(st *State) map[string]interface{} {
	out := vars.ToContext(s.ResolveVars(st))
	for k, v := range s.State.AsMap() {
		out[k] = v
	}
	return out
}

// RenderedTitle expands the title template and prefixes the done mark.
func (s *Step) RenderedTitle(st *State) string {
	prefix := ""
	if s.IsDone() {
		prefix = console.DoneMark()
	}
	return prefix + st.Runtime.Expander.Render(s.Title, s.VarsAndState(st))
}

// dependsMet checks the step's dependencies. The returned title names the
// first unmet dependency.
func (s *Step) dependsMet(st *State) (bool, string) {
	for _, dep := range s.Depends {
		if group := st.GroupByID(dep); group != nil {
			if !group.IsDone(st) {
				return false, group.Title
			}
			continue
		}
		if step := st.StepByID(dep); step != nil {
			if !step.IsDone() {
				return false, step.Title
			}
			continue
		}
		return false, dep
	}
	return true, ""
}

// Activate walks the operator through the step: description, custom action,
// user input, links, commands, and the final completion confirmation. The
// operator has the last word on completion regardless of command success.
func (s *Step) Activate(st *State) {
	rt := st.Runtime

	if ok, title := s.dependsMet(st); !ok {
		rt.IO.Printf("This step depends on '%s'. Please complete that first\n\n", title)
		return
	}

	if s.Description != "" {
		rt.IO.Printf("%s\n", rt.Expander.Render(s.Description, s.VarsAndState(st)))
	}

	if s.Function != "" && !s.IsDone() {
		fn, err := rt.Registry.StepFunc(s.Function)
		if err != nil {
			rt.IO.Printf("Error: %v\n", err)
			return
		}
		if err := fn(s); err != nil {
			rt.IO.Printf("Function call to %s for step %s failed: %v\n", s.Function, s.ID, err)
			return
		}
	}

	if len(s.UserInput) > 0 && !s.IsDone() {
		for _, input := range s.UserInput {
			s.SetStateVar(input.Name, input.Run(rt.IO))
		}
		rt.IO.Println()
	}

	if len(s.Links) > 0 {
		rt.IO.Printf("\nLinks:\n\n")
		for _, link := range s.Links {
			rt.IO.Printf("- %s\n", rt.Expander.Render(link, s.VarsAndState(st)))
		}
		rt.IO.Println()
	}

	if s.Commands != nil {
		if !s.IsDone() {
			if s.Commands.LogsPrefix == "" {
				s.Commands.LogsPrefix = s.ID
			}
			s.Commands.Run(&command.RunContext{
				IO:       rt.IO,
				Out:      rt.Out,
				Resolver: rt.Resolver,
				StepVars: s.ResolveVars(st),
				LogDir:   filepath.Join(st.RCFolder(), "logs"),
				DryRun:   rt.DryRun,
			})
		} else {
			rt.IO.Println("This step is already completed. You have to first set it to 'not completed' in order to execute commands again.")
		}
		rt.IO.Println()
	}

	if s.PostDescription != "" {
		rt.IO.Printf("%s\n", rt.Expander.Render(s.PostDescription, s.VarsAndState(st)))
	}

	if s.IsDone() && len(s.State.Vars) > 0 {
		rt.IO.Println("Variables registered")
		rt.IO.Println()
		names := make([]string, 0, len(s.State.Vars))
		for name := range s.State.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rt.IO.Printf("* %s = %s\n", name, s.State.Vars[name])
		}
		rt.IO.Println()
	}

	completed := rt.IO.Confirm(fmt.Sprintf("Mark task '%s' as completed?", s.RenderedTitle(st)))
	s.MarkDone(st, completed)
	if err := st.Save(); err != nil {
		rt.IO.Printf("Warning: failed to save state: %v\n", err)
	}
}

// StepGroup is a named collection of steps with shared applicability and
// dependency handling.
type StepGroup struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description,omitempty"`
	InRCLoop    bool       `yaml:"in_rc_loop,omitempty"`
	Depends     StringList `yaml:"depends,omitempty"`
	Condition   string     `yaml:"condition,omitempty"`
	Todos       []*Step    `yaml:"todos"`
}

// Applies reports whether the group is relevant for the current release.
// Evaluation errors are reported and the group treated as applicable.
func (g *StepGroup) Applies(st *State) bool {
	if g.Condition == "" || st.Runtime.Conditions == nil {
		return true
	}
	ok, err := st.Runtime.Conditions.Evaluate(g.Condition, st.TemplateContext())
	if err != nil {
		fmt.Printf("Warning: condition for group %s failed: %v\n", g.ID, err)
		return true
	}
	return ok
}

// NumDone counts completed steps in the group.
func (g *StepGroup) NumDone() int {
	count := 0
	for _, s := range g.Todos {
		if s.IsDone() {
			count++
		}
	}
	return count
}

// NumApplies counts steps relevant for the current release type.
func (g *StepGroup) NumApplies(st *State) int {
	count := 0
	for _, s := range g.Todos {
		if s.Applies(st) {
			count++
		}
	}
	return count
}

// IsDone holds once every applicable step in the group is done.
func (g *StepGroup) IsDone(st *State) bool {
	return g.NumDone() >= g.NumApplies(st)
}

// RenderedTitle shows the done mark and progress count.
func (g *StepGroup) RenderedTitle(st *State) string {
	prefix := ""
	if g.IsDone(st) {
		prefix = console.DoneMark()
	}
	return fmt.Sprintf("%s%s (%d/%d)", prefix, g.Title, g.NumDone(), g.NumApplies(st))
}

// RenderedDescription expands the group description template.
func (g *StepGroup) RenderedDescription(st *State) string {
	if g.Description == "" {
		return ""
	}
	return st.Runtime.Expander.Render(g.Description, nil)
}

// DependencyNote returns a notice when the group's dependency is unmet.
func (g *StepGroup) DependencyNote(st *State) string {
	for _, dep := range g.Depends {
		if group := st.GroupByID(dep); group != nil {
			if !group.IsDone(st) {
				return fmt.Sprintf("NOTE: Please first complete '%s'", group.Title)
			}
			continue
		}
		if step := st.StepByID(dep); step != nil && !step.IsDone() {
			return fmt.Sprintf("NOTE: Please first complete '%s'", step.Title)
		}
	}
	return ""
}
