// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relwiz/relwiz/internal/core/config"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/release"
)

var runCmd = &cobra.Command{
	Use:   "run [version]",
	Short: "Start or resume the interactive wizard",
	Long: `Start the wizard for a release version, or resume the release recorded in
~/.relwizrc when no version is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		releaseVersion, err := resolveVersion(args)
		if err != nil {
			return err
		}

		st, def, err := buildState(releaseVersion)
		if err != nil {
			return err
		}

		checkPrerequisites(def, st.Runtime.IO)

		pointer := &config.Pointer{Root: stateRoot(), ReleaseVersion: releaseVersion}
		if err := config.StorePointer(pointer); err != nil {
			st.Runtime.IO.Printf("Warning: failed to write %s: %v\n", config.PointerPath(), err)
		}
		if err := st.Save(); err != nil {
			return err
		}

		mainMenu(st).Show(st.Runtime.IO)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// resolveVersion picks the release version from the argument or from the
// pointer file written by a previous run.
func resolveVersion(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	pointer, err := config.LoadPointer()
	if err != nil {
		return "", err
	}
	if pointer == nil || pointer.ReleaseVersion == "" {
		return "", fmt.Errorf("no release in progress; run 'relwiz run <version>' to start one")
	}
	if rootFlag == "" && pointer.Root != "" {
		rootFlag = pointer.Root
	}
	fmt.Printf("Resuming release %s\n", pointer.ReleaseVersion)
	return pointer.ReleaseVersion, nil
}

// mainMenu is the top-level menu: one entry per step group plus the release
// candidate management entries.
func mainMenu(st *release.State) *console.Menu {
	var items []console.Item

	for _, g := range st.Groups {
		group := g
		items = append(items, console.Item{
			Title: func() string {
				title := group.RenderedTitle(st)
				if !group.Applies(st) {
					title += " (does not apply to this release)"
				}
				return title
			},
			Action: func() {
				groupMenu(st, group).Show(st.Runtime.IO)
			},
		})
	}

	items = append(items,
		console.Item{
			Title: func() string {
				return fmt.Sprintf("Abandon RC%d and start a new release candidate", st.RCNumber)
			},
			Action: func() {
				prompt := fmt.Sprintf("This will abandon RC%d, archive its progress and start RC%d. Continue?",
					st.RCNumber, st.RCNumber+1)
				if st.Runtime.IO.Confirm(prompt) {
					if err := st.StartNewRC(); err != nil {
						st.Runtime.IO.Printf("Warning: failed to save state: %v\n", err)
					}
				}
			},
		},
		console.Item{
			Title: func() string {
				return fmt.Sprintf("Clear and restart RC%d", st.RCNumber)
			},
			Action: func() {
				prompt := fmt.Sprintf("This will clear all progress and files of RC%d without archiving. Continue?",
					st.RCNumber)
				if st.Runtime.IO.Confirm(prompt) {
					if err := st.ClearCurrentRC(); err != nil {
						st.Runtime.IO.Printf("Warning: failed to save state: %v\n", err)
					}
				}
			},
		},
		console.StaticItem("Start the release over (reset all state)", func() {
			if st.Runtime.IO.Confirm("This will wipe every step's state and all RC history. Continue?") {
				if err := st.FullReset(); err != nil {
					st.Runtime.IO.Printf("Warning: failed to save state: %v\n", err)
				}
			}
		}),
		console.StaticItem("Show status", func() {
			printStatus(st)
		}),
	)

	return &console.Menu{
		Title: fmt.Sprintf("Releasing %s %s", st.Project, st.ReleaseVersion),
		Subtitle: func() string {
			return fmt.Sprintf("%s release on branch %s, release candidate %d",
				st.ReleaseType, st.ReleaseBranch, st.RCNumber)
		},
		ExitText: "Quit",
		Items:    items,
	}
}

// groupMenu lists a group's steps for activation.
func groupMenu(st *release.State, group *release.StepGroup) *console.Menu {
	var items []console.Item
	for _, s := range group.Todos {
		step := s
		items = append(items, console.Item{
			Title: func() string {
				title := step.RenderedTitle(st)
				if !step.Applies(st) {
					title += " (does not apply to this release)"
				}
				return title
			},
			Action: func() {
				step.Activate(st)
			},
		})
	}

	return &console.Menu{
		Title: group.Title,
		Subtitle: func() string {
			sub := group.RenderedDescription(st)
			if note := group.DependencyNote(st); note != "" {
				sub += "\n" + note
			}
			return sub
		},
		ExitText: "Back",
		Items:    items,
	}
}
