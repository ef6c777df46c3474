package ui

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// Pad right-pads s with spaces to width runes so that labels with umlauts
// line up in status tables.
func Pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	// fatih/color also detects TERM=dumb and non-TTY output.
	return color.NoColor
}

// Semantic formatters for CLI output.
var (
	// Code formats runnable commands such as `medkeys keys init`.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats key store, config and audit log paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag formats CLI flags like --password-stdin.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	// Success formats success indicators and up-to-date keys.
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error formats error indicators and overdue keys.
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Warning formats warnings and keys that are due soon.
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints and directional indicators.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats purposes, actors and other user-facing values.
	// 'single quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text. (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}

	// Secret formats recovery data and shares the user must copy out.
	// Always undecorated so that copy and paste yields the exact value.
	Secret = Formatter{color.New(color.FgMagenta, color.Bold), "", ""}
)
