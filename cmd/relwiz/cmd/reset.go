// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset [version]",
	Short: "Wipe all progress for a release and start over",
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

		if !st.Runtime.IO.Confirm("This will wipe every step's state and all RC history. Continue?") {
			return nil
		}
		return st.FullReset()
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
