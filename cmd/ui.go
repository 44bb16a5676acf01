package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

func (a *App) newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(a.Status))
	s.Suffix = suffix
	return s
}

func (a *App) printHeader(title string, details ...string) {
	if !a.human() {
		return
	}
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(a.Status)
	cyan.Fprintln(a.Status, title)
	for _, d := range details {
		fmt.Fprintf(a.Status, "%s\n", d)
	}
	fmt.Fprintln(a.Status)
}

func (a *App) printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(a.Status, "✓ %s\n", msg)
}

func (a *App) printError(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(a.Status, "✗ %s\n", msg)
}
