// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the relwiz command line interface.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/version"
)

var (
	rootFlag          string
	configFlag        string
	dryRunFlag        bool
	latestVersionFlag string
)

var rootCmd = &cobra.Command{
	Use:   "relwiz",
	Short: "Interactive release wizard",
	Long: `relwiz walks a release manager through a release, step by step.

The checklist is a YAML document of step groups; progress is stored per
release version under the state root, so the wizard can be stopped and
resumed at any point. Commands a step wants to run are always shown and
confirmed before execution, and their output is logged under the current
release candidate's folder.`,
	Version:       fmt.Sprintf("%s (commit %s)", version.Version, version.Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"state root folder (default ~/.relwiz-releases)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"checklist definition file (default: built-in checklist)")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false,
		"show commands instead of executing them")
	rootCmd.PersistentFlags().StringVar(&latestVersionFlag, "latest-version", "",
		"latest released version, used to derive branch names for bugfix releases")
}

// stateRoot resolves the state root folder from the flag or the default
// location in the user's home directory.
func stateRoot() string {
	if rootFlag != "" {
		return format.ExpandHome(rootFlag)
	}
	return filepath.Join(format.HomeDir(), ".relwiz-releases")
}
