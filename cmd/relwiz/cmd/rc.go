// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rcCmd = &cobra.Command{
	Use:   "rc",
	Short: "Manage release candidates",
}

var rcNewCmd = &cobra.Command{
	Use:   "new [version]",
	Short: "Abandon the current candidate and start the next one",
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

		prompt := fmt.Sprintf("This will abandon RC%d, archive its progress and start RC%d. Continue?",
			st.RCNumber, st.RCNumber+1)
		if !st.Runtime.IO.Confirm(prompt) {
			return nil
		}
		if err := st.StartNewRC(); err != nil {
			return err
		}
		st.Runtime.IO.Printf("Now working on RC%d\n", st.RCNumber)
		return nil
	},
}

var rcClearCmd = &cobra.Command{
	Use:   "clear [version]",
	Short: "Clear the current candidate's progress and files",
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

		prompt := fmt.Sprintf("This will clear all progress and files of RC%d without archiving. Continue?",
			st.RCNumber)
		if !st.Runtime.IO.Confirm(prompt) {
			return nil
		}
		return st.ClearCurrentRC()
	},
}

func init() {
	rcCmd.AddCommand(rcNewCmd)
	rcCmd.AddCommand(rcClearCmd)
	rootCmd.AddCommand(rcCmd)
}
