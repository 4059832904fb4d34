// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/relwiz/relwiz/internal/wizard/release"
)

var statusCmd = &cobra.Command{
	Use:   "status [version]",
	Short: "Show release progress without entering the wizard",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		releaseVersion, err := resolveVersion(args)
		if err != nil {
			return err
		}

		st, _, err := buildState(releaseVersion)
		if err != nil {
			return err
		}

		printStatus(st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// printStatus writes the full step tree with completion marks and the RC
// history to the operator.
func printStatus(st *release.State) {
	io := st.Runtime.IO

	io.Println()
	io.Printf("Release %s %s (%s release), release candidate %d\n",
		st.Project, st.ReleaseVersion, st.ReleaseType, st.RCNumber)
	if date := st.ReleaseDate(); !date.IsZero() {
		io.Printf("Published on %s\n", date.Format("2006-01-02"))
	}
	io.Println()

	for _, g := range st.Groups {
		io.Printf("%s\n", g.RenderedTitle(st))
		for _, s := range g.Todos {
			mark := "[ ]"
			if s.IsDone() {
				mark = "[x]"
			}
			suffix := ""
			if !s.Applies(st) {
				suffix = " (does not apply)"
			} else if s.State.DoneDate != 0 {
				suffix = " (" + time.UnixMilli(s.State.DoneDate).UTC().Format("2006-01-02") + ")"
			}
			io.Printf("  %s %s%s\n", mark, s.RenderedTitle(st), suffix)
		}
	}

	if len(st.PreviousRCs) > 0 {
		labels := make([]string, 0, len(st.PreviousRCs))
		for label := range st.PreviousRCs {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		io.Println()
		io.Printf("Abandoned release candidates:\n")
		for _, label := range labels {
			io.Printf("  %s (%d steps archived)\n", label, len(st.PreviousRCs[label]))
		}
	}
	io.Println()
}
