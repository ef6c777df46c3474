package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/utils"
	"github.com/medeasy/medkeys/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	return startSpinnerWithFlags(message, verbose, debug)
}

// startSpinnerWithFlags creates and starts a spinner with explicit verbose and debug flags.
// The config commands have their own flag variables and use this directly.
func startSpinnerWithFlags(message string, verbose, debugFlag bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	quiet := !verbose && !debugFlag
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		// Clear FinalMSG so s.Stop() doesn't print it.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// passwordPrompt describes one password the command needs.
type passwordPrompt struct {
	label string
	// confirm asks twice on a terminal. Used for passwords being set.
	confirm bool
}

// readPasswords collects one password per prompt, either from the terminal
// or, with --password-stdin, from consecutive lines of stdin.
func readPasswords(cmd *cobra.Command, prompts ...passwordPrompt) ([][]byte, error) {
	out := make([][]byte, 0, len(prompts))

	if passwordStdin {
		Logger.Debugf("Reading %d password(s) from stdin", len(prompts))
		lines, err := utils.ReadLines(cmd.InOrStdin(), len(prompts))
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			out = append(out, []byte(line))
		}
		return out, nil
	}

	for _, p := range prompts {
		var (
			pw  []byte
			err error
		)
		if p.confirm {
			pw, err = utils.ReadNewPassphrase(p.label)
		} else {
			pw, err = utils.ReadPassphrase(p.label)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, pw)
	}
	return out, nil
}

// wipePasswords clears passwords once a command is done with them.
func wipePasswords(passwords [][]byte) {
	for _, pw := range passwords {
		for i := range pw {
			pw[i] = 0
		}
	}
}

func sessionOptions(password []byte) workflows.SessionOptions {
	return workflows.SessionOptions{
		ConfigPath: configPath,
		Password:   password,
		Logger:     Logger,
	}
}

// reportedError marks an error whose message has already been printed.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user, so main only
// needs to set the exit code.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// fail puts a formatted error on the spinner and returns it marked as
// reported.
func fail(s *spinner.Spinner, err error) error {
	s.FinalMSG = formatError(err)
	return reportedError{err: err}
}

// formatError formats an error for display to the user.
func formatError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrStoreNotInitialized):
		return ui.Error.Sprint("✗") + " No key store found\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("medkeys keys init") + " first"

	case errors.Is(err, kerrors.ErrInvalidPassword):
		return ui.Error.Sprint("✗") + " The password is incorrect"

	case errors.Is(err, kerrors.ErrEncryptionRequired):
		return ui.Error.Sprint("✗") + " Encryption is required in production mode\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrCorruptStore):
		return ui.Error.Sprint("✗") + " The key store is damaged and cannot be read\n" +
			ui.Info.Sprint("→") + " Restore it from a backup or use your recovery data\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrNotEnoughShares):
		return ui.Error.Sprint("✗") + " Not enough recovery shares\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrInvalidShares):
		return ui.Error.Sprint("✗") + " Invalid recovery share\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrRecovery):
		return ui.Error.Sprint("✗") + " Recovery check failed\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrDecryptFailed):
		return ui.Error.Sprint("✗") + " The value could not be decrypted with this key"

	case errors.Is(err, kerrors.ErrInvalidConfig):
		return ui.Error.Sprint("✗") + " Invalid configuration\n\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	default:
		return ui.Error.Sprint("✗") + " " + err.Error()
	}
}

// report prints a formatted error when no spinner is running.
func report(err error) error {
	fmt.Print(ui.EnsureNewline(formatError(err)))
	return reportedError{err: err}
}
