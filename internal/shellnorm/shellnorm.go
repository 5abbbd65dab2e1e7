// Package shellnorm normalizes a builtin-command line for the user's login
// shell before it is written to a PTY: Fish requires semicolons around block
// keywords when a multi-line command is flattened onto one line, while
// sh-compatible shells need no rewriting at all.
package shellnorm

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Shell normalizes and classifies commands for a particular shell's syntax.
type Shell interface {
	// NormalizeCommand rewrites command so it is valid as a single line
	// (inserting semicolons around block keywords where the shell needs
	// them).
	NormalizeCommand(command string) string
	// IsSyntaxComplete reports whether command parses as a complete
	// statement on its own.
	IsSyntaxComplete(command string) bool
}

// ProgramName extracts the first word of command, stripped of any path
// prefix — used to check whether a command names a shell builtin.
func ProgramName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if i := strings.LastIndexByte(first, '/'); i >= 0 {
		first = first[i+1:]
	}
	return first
}

// IsBuiltin reports whether command names one of the given shell builtins.
func IsBuiltin(command string, builtins []string) bool {
	program := ProgramName(command)
	for _, b := range builtins {
		if b == program {
			return true
		}
	}
	return false
}

// DefaultShell is the sh-compatible fallback: no normalization, every
// command is assumed syntactically complete since there is no reliable way
// to check sh/bash/zsh syntax without running the shell.
type DefaultShell struct{}

func (DefaultShell) NormalizeCommand(command string) string { return command }

func (DefaultShell) IsSyntaxComplete(string) bool { return true }

var fishBlockKeywords = map[string]bool{
	"begin": true, "if": true, "while": true, "for": true,
	"function": true, "switch": true,
}

var fishEndKeywords = map[string]bool{
	"end": true, "else": true, "case": true,
}

// FishShell normalizes commands for Fish's block-statement syntax, which
// requires a semicolon (or newline) after a block-opening keyword and before
// certain block-continuation keywords when everything is flattened to one
// line.
type FishShell struct {
	path string
}

// NewFishShell builds a FishShell using $SHELL, defaulting to /usr/bin/fish
// if unset.
func NewFishShell() *FishShell {
	path := os.Getenv("SHELL")
	if path == "" {
		path = "/usr/bin/fish"
	}
	return &FishShell{path: path}
}

// NormalizeCommand inserts semicolons around Fish block keywords so a
// command built by joining multiple lines with spaces still parses as Fish
// expects.
func (f *FishShell) NormalizeCommand(command string) string {
	words := strings.Fields(command)
	var b strings.Builder
	needsSemicolonBefore := false

	for i, word := range words {
		if b.Len() > 0 && fishEndKeywords[word] && needsSemicolonBefore {
			b.WriteString("; ")
			needsSemicolonBefore = false
		} else if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(word)

		if fishBlockKeywords[word] && i < len(words)-1 {
			b.WriteByte(';')
			needsSemicolonBefore = true
		} else if !fishEndKeywords[word] {
			needsSemicolonBefore = true
		}
	}

	return b.String()
}

// IsSyntaxComplete shells out to `fish -n -c command` to check the command
// parses on its own. If the shell can't be run at all, the command is
// assumed complete rather than blocking forever.
func (f *FishShell) IsSyntaxComplete(command string) bool {
	cmd := exec.Command(f.path, "-n", "-c", command)
	err := cmd.Run()
	if err == nil {
		return true
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false
	}
	return true
}

// Detect picks a Shell implementation based on $SHELL's basename.
func Detect() Shell {
	path := os.Getenv("SHELL")
	if path == "" {
		path = "/bin/sh"
	}
	if filepath.Base(path) == "fish" {
		return NewFishShell()
	}
	return DefaultShell{}
}
