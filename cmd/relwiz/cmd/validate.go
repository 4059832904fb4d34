// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relwiz/relwiz/internal/core/config"
	"github.com/relwiz/relwiz/internal/core/format"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a checklist definition without starting the wizard",
	Long: `Validate a checklist definition: structural schema, unique step ids,
dependency references, function names and condition expressions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var def *config.Definition
		var err error
		switch {
		case len(args) == 1:
			def, err = config.Load(format.ExpandHome(args[0]))
		case configFlag != "":
			def, err = config.Load(format.ExpandHome(configFlag))
		default:
			def, err = config.LoadDefault()
		}
		if err != nil {
			return err
		}

		// Referential validation needs a full state; any valid version works.
		if _, err := newState(def, "1.0.0"); err != nil {
			return err
		}

		steps := 0
		for _, g := range def.Groups {
			steps += len(g.Todos)
		}
		fmt.Printf("Checklist for %q is valid: %d groups, %d steps\n",
			def.Project, len(def.Groups), steps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
