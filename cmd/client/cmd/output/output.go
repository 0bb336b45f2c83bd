// Package output renders command results either as colored text for a
// terminal or as indented JSON for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	header  = color.New(color.Bold)
	faint   = color.New(color.Faint)
)

// JSON reports whether cmd should print machine-readable output: --json was
// given or stdout is not a terminal.
func JSON(cmd *cobra.Command) bool {
	if on, err := cmd.Flags().GetBool("json"); err == nil && on {
		return true
	}
	return !IsTerminal(os.Stdout)
}

func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Print writes v as JSON or hands w to text.
func Print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if JSON(cmd) {
		return WriteJSON(w, v)
	}
	text(w)
	return nil
}

func Header(w io.Writer, format string, a ...any) {
	header.Fprintf(w, "=== "+format+" ===\n", a...)
}

func Success(w io.Writer, format string, a ...any) {
	success.Fprintf(w, "✓ "+format+"\n", a...)
}

func Warn(w io.Writer, format string, a ...any) {
	warning.Fprintf(w, "! "+format+"\n", a...)
}

func Fail(w io.Writer, format string, a ...any) {
	failure.Fprintf(w, "✗ "+format+"\n", a...)
}

func Faint(w io.Writer, format string, a ...any) {
	faint.Fprintf(w, format+"\n", a...)
}

// Field prints an aligned "label: value" line.
func Field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %-18s %v\n", label+":", value)
}
