// Package ui provides terminal output helpers for the converter CLI.
package ui

import (
	"github.com/fatih/color"
)

var verboseFlag bool

// InitUI applies the color and verbosity flags.
func InitUI(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool {
	return verboseFlag
}
