package util

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

/*
   references:
   - https://no-color.org/
   - https://force-color.org/
*/

// IsTerminal checks if stdout is a terminal using go-isatty
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShouldUseColors determines if coloured output should be used
func ShouldUseColors() bool {
	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		return false
	}

	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		return forceColor != "0"
	}

	if qliteColors := os.Getenv("QLITE_FORCE_COLORS"); qliteColors != "" {
		return strings.EqualFold(qliteColors, "true")
	}

	return IsTerminal()
}
