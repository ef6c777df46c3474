package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes leveled, colored console messages. The zero value prints
// warnings and errors to stderr and nothing else.
type Logger struct {
	Verbose bool
	Debug   bool

	// Component, when set, follows the level tag, e.g. "[info] key_manager: ".
	Component string

	// Out and Err replace stdout and stderr when non-nil.
	Out io.Writer
	Err io.Writer
}

// Named returns a copy of l tagged with component.
func (l Logger) Named(component string) Logger {
	l.Component = component
	return l
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		l.write(l.stdout(), color.GreenString("[info] "), msg, args)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		l.write(l.stdout(), color.CyanString("[debug] "), msg, args)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	l.write(l.stderr(), color.YellowString("[warn] "), msg, args)
}

func (l Logger) Errorf(msg string, args ...any) {
	l.write(l.stderr(), color.RedString("[error] "), msg, args)
}

// ErrorfAndReturn logs the message when debugging and returns it as an error.
func (l Logger) ErrorfAndReturn(msg string, args ...any) error {
	if l.Debug {
		l.Errorf(msg, args...)
	}
	return fmt.Errorf(msg, args...)
}

func (l Logger) write(w io.Writer, tag, msg string, args []any) {
	if l.Component != "" {
		tag += l.Component + ": "
	}
	fmt.Fprintf(w, tag+msg+"\n", args...)
}

func (l Logger) stdout() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}

func (l Logger) stderr() io.Writer {
	if l.Err != nil {
		return l.Err
	}
	return os.Stderr
}
