// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/relwiz/relwiz/internal/core/format"
	"github.com/relwiz/relwiz/internal/wizard/console"
	"github.com/relwiz/relwiz/internal/wizard/vars"
)

// slowCommandThreshold is how long a command may run before its elapsed
// time is reported.
const slowCommandThreshold = 30 * time.Second

// tailLines is how much of the log is echoed when a command fails.
const tailLines = 25

var nonWord = regexp.MustCompile(`\W`)

// Group is an ordered sequence of Commands sharing a root folder and
// environment.
type Group struct {
	// RootFolder is the (templated) working-directory root
	RootFolder string `yaml:"root_folder"`

	// CommandsText is shown above the command listing
	CommandsText string `yaml:"commands_text,omitempty"`

	// RunText is shown right before the execution confirmation
	RunText string `yaml:"run_text,omitempty"`

	// LogsPrefix names the log folder / file prefix for this group
	LogsPrefix string `yaml:"logs_prefix,omitempty"`

	// EnableExecute, when false, limits the group to a dry preview
	EnableExecute *bool `yaml:"enable_execute,omitempty"`

	// ConfirmEachCommand toggles per-command confirmation (default on when
	// the group has more than one command)
	ConfirmEachCommand *bool `yaml:"confirm_each_command,omitempty"`

	// Env is exported into the process environment before running
	Env map[string]string `yaml:"env,omitempty"`

	// Vars are group-local variables
	Vars vars.Ordered `yaml:"vars,omitempty"`

	// RemoveFiles are files/folders offered for removal before running
	RemoveFiles []string `yaml:"remove_files,omitempty"`

	Commands []*Command `yaml:"commands"`
}

// RunContext carries everything a group run needs from its surroundings.
type RunContext struct {
	IO       console.IO
	Out      io.Writer
	Resolver *vars.Resolver

	// StepVars are the owning step's resolved variables; they take
	// precedence over group- and command-local variables.
	StepVars map[string]string

	// LogDir is the per-RC log folder
	LogDir string

	DryRun bool
}

func (ctx *RunContext) out() io.Writer {
	if ctx.Out != nil {
		return ctx.Out
	}
	return os.Stdout
}

// render expands text against the group's variables overlaid with the
// owning step's variables.
func (g *Group) render(ctx *RunContext, text string, extra map[string]string) string {
	merged := vars.Merge(ctx.Resolver.Resolve(g.Vars), ctx.StepVars)
	merged = vars.Merge(merged, extra)
	return ctx.Resolver.Expander.Render(text, vars.ToContext(merged))
}

// renderCommand expands a command field with the command's own variables in
// scope as well.
func (g *Group) renderCommand(ctx *RunContext, c *Command, text string) string {
	cmdVars := ctx.Resolver.Resolve(c.Vars)
	return g.render(ctx, text, cmdVars)
}

// Run displays the rendered commands, asks for confirmation and executes
// them in order, stopping at the first failure. It returns overall success;
// the caller decides separately whether the step counts as done.
func (g *Group) Run(ctx *RunContext) bool {
	root := g.render(ctx, g.RootFolder, nil)

	if g.CommandsText != "" {
		ctx.IO.Printf("%s\n", g.render(ctx, g.CommandsText, nil))
	}
	for key, value := range g.Env {
		rendered := g.render(ctx, value, nil)
		os.Setenv(key, rendered)
		ctx.IO.Printf("\n  export %s=%s\n", key, rendered)
	}
	ctx.IO.Printf("%s\n", format.AbbreviateHome("\n  cd "+root))
	for _, c := range g.Commands {
		for _, line := range c.DisplayLines(func(s string) string { return g.renderCommand(ctx, c, s) }) {
			ctx.IO.Printf("  %s\n", line)
		}
	}
	ctx.IO.Println()

	if g.EnableExecute != nil && !*g.EnableExecute {
		// Preview only; these commands are run elsewhere by the operator.
		return true
	}

	confirmEach := (g.ConfirmEachCommand == nil || *g.ConfirmEachCommand) && len(g.Commands) > 1

	if g.RunText != "" {
		ctx.IO.Printf("\n%s\n\n", g.render(ctx, g.RunText, nil))
	}
	if confirmEach {
		ctx.IO.Println("You will get prompted before running each individual command.")
	} else {
		ctx.IO.Println("You will not be prompted for each command but will see the output of each. If one command fails the execution will stop.")
	}

	if !ctx.IO.Confirm("Do you want me to run these commands now?") {
		return true
	}

	g.offerRemoveFiles(ctx, root)

	success := true
	logFolder := g.logFolder(ctx)
	for index, c := range g.Commands {
		cwd := root
		if c.Cwd != "" {
			cwd = filepath.Join(root, c.Cwd)
		}
		if confirmEach && c.Comment != "" {
			ctx.IO.Printf("# %s\n\n", g.renderCommand(ctx, c, c.Comment))
		}
		cmdText := g.renderCommand(ctx, c, c.Cmd)
		if confirmEach {
			if !ctx.IO.Confirm(fmt.Sprintf("Shall I run '%s' in folder '%s'", cmdText, cwd)) {
				continue
			}
		} else {
			ctx.IO.Printf("------------\nRunning '%s' in folder '%s'\n", cmdText, cwd)
		}

		if ctx.DryRun {
			ctx.IO.Printf("Dry run, command is: %s\n", cmdText)
			continue
		}

		if c.Redirect != "" {
			if !g.runRedirect(ctx, c, cmdText, cwd) {
				success = false
				break
			}
			continue
		}

		ok, failed := g.runStreamed(ctx, c, cmdText, cwd, logFolder, index, confirmEach)
		if failed {
			success = ok
			break
		}
	}

	if !success {
		ctx.IO.Println("WARNING: One or more commands failed, you may want to check the logs")
	}
	return success
}

// offerRemoveFiles offers each declared pre-existing file/folder for
// removal, individually.
func (g *Group) offerRemoveFiles(ctx *RunContext, root string) {
	for _, rf := range g.RemoveFiles {
		path := filepath.Join(root, g.render(ctx, rf, nil))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		kind := "File"
		if info.IsDir() {
			kind = "Folder"
		}
		if ctx.IO.Confirm(fmt.Sprintf("%s %s already exists. Shall I remove it now?", kind, path)) && !ctx.DryRun {
			if err := os.RemoveAll(path); err != nil {
				ctx.IO.Printf("Warning: failed to remove %s: %v\n", path, err)
			}
		}
	}
}

// runRedirect executes a command capturing its full output into the
// redirect target. Any failure aborts the whole group.
func (g *Group) runRedirect(ctx *RunContext, c *Command, cmdText, cwd string) bool {
	out, err := Capture(ProcSpec{Command: cmdText, Dir: cwd, Shell: c.Shell})
	if err != nil {
		ctx.IO.Printf("Command %s failed: %v\n", cmdText, err)
		return false
	}

	target := filepath.Join(cwd, g.renderCommand(ctx, c, c.Redirect))
	if c.RedirectAppend {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			_, err = f.Write(out)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			ctx.IO.Printf("Command %s failed: error appending to %s: %v\n", cmdText, target, err)
			return false
		}
	} else {
		if err := format.AtomicWriteRaw(target, out); err != nil {
			ctx.IO.Printf("Command %s failed: error writing %s: %v\n", cmdText, target, err)
			return false
		}
	}
	ctx.IO.Printf("Wrote %d bytes to redirect file %s\n", len(out), c.Redirect)
	return true
}

// runStreamed executes a command with streamed output. The second return
// value reports whether the group must stop.
func (g *Group) runStreamed(ctx *RunContext, c *Command, cmdText, cwd, logFolder string, index int, confirmEach bool) (bool, bool) {
	logPath := ""
	if !c.Stdout && !c.Live {
		logPath = filepath.Join(logFolder, g.logFileName(ctx, c, cmdText, index))
		if c.Tee {
			ctx.IO.Printf("Output of command will be printed (logfile=%s)\n", logPath)
		} else {
			ctx.IO.Printf("Wait until command completes... Full log in %s\n\n", logPath)
		}
	} else if c.Live {
		ctx.IO.Println("Output will be shown live byte by byte")
	}
	if !confirmEach && c.Comment != "" {
		ctx.IO.Printf("# %s\n\n", g.renderCommand(ctx, c, c.Comment))
	}

	start := time.Now()
	exitCode, err := Follow(ProcSpec{Command: cmdText, Dir: cwd, Shell: c.Shell}, logPath, c.Tee, ctx.out())
	elapsed := time.Since(start)

	if err != nil {
		ctx.IO.Printf("WARN: Command %s could not be run: %v\n", cmdText, err)
		return false, true
	}

	if exitCode != 0 {
		if c.ShouldFail {
			ctx.IO.Println("Command failed, which was expected")
			return true, false
		}
		ctx.IO.Printf("WARN: Command %s returned with error\n", cmdText)
		if logPath != "" && !c.Tee {
			tailLog(ctx.IO, logPath, tailLines)
		}
		return false, true
	}

	if c.ShouldFail {
		ctx.IO.Println("Expected command to fail, but it succeeded.")
		return false, true
	}

	if elapsed > slowCommandThreshold {
		ctx.IO.Printf("Command completed in %.0f seconds\n", elapsed.Seconds())
	}
	return true, false
}

// logFolder computes the per-group log folder beneath the RC log dir.
func (g *Group) logFolder(ctx *RunContext) string {
	if len(g.Commands) > 1 && g.LogsPrefix != "" && !filepath.IsAbs(g.LogsPrefix) {
		return filepath.Join(ctx.LogDir, g.LogsPrefix)
	}
	return ctx.LogDir
}

// logFileName derives the per-command log file name: a numeric sequence
// prefix when the group has more than one command, a folder prefix when the
// command runs in a subdirectory, then either the override or a sanitized
// form of the command text.
func (g *Group) logFileName(ctx *RunContext, c *Command, cmdText string, index int) string {
	prefix := g.LogsPrefix
	if len(g.Commands) > 1 {
		prefix = fmt.Sprintf("%02d_", index+1)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	folderPrefix := ""
	if c.Cwd != "" {
		folderPrefix = c.Cwd + "_"
	}
	name := c.Logfile
	if name == "" {
		name = nonWord.ReplaceAllString(cmdText, "_") + ".log"
	}
	return prefix + folderPrefix + name
}
