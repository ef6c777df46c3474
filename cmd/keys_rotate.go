package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/utils"
	"github.com/medeasy/medkeys/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	rotateDue   bool
	rotateForce bool
	rotateActor string
)

func init() {
	keysRotateCmd.Flags().BoolVar(&rotateDue, "due", false, "rotate every overdue key")
	keysRotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	keysRotateCmd.Flags().StringVar(&rotateActor, "actor", "", "actor recorded in the audit log (default user@host)")
}

// resetRotateCommandState resets the rotate command's global state for testing.
func resetRotateCommandState() {
	rotateDue = false
	rotateForce = false
	rotateActor = ""
}

// confirmRotate prompts the user to confirm the rotation.
// Returns true if the user confirms, false otherwise. The spinner is
// resumed only if it was running before the prompt.
func confirmRotate(s *spinner.Spinner, purposes []keystore.Purpose, in io.Reader) bool {
	wasActive := s.Active()
	s.Stop()
	resume := func() {
		if wasActive {
			s.Restart()
		}
	}

	labels := make([]string, 0, len(purposes))
	for _, p := range purposes {
		labels = append(labels, ui.Highlight.Sprint(ui.PurposeLabel(p)))
	}
	fmt.Printf("\n%s This will replace the key(s) %s.\n", ui.Warning.Sprint("Warning:"), strings.Join(labels, ", "))
	fmt.Println("  Data encrypted under the old key must be re-encrypted by the application.")
	fmt.Println()

	reader := bufio.NewReader(in)
	fmt.Print("Do you want to continue? [y/N]: ")
	response, err := reader.ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		resume()
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))

	resume()
	return response == "y" || response == "yes"
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate [purpose...]",
	Short: "Replace data keys",
	Long: `Generates new data keys for the given purposes, or for every overdue key
with --due. The new key is written to disk before it is used; if the write
fails the old key stays in effect.

Purposes: database, field_patient, field_session, field_transcript, backup.

Examples:
  # Rotate the database key (with confirmation prompt)
  medkeys keys rotate database

  # Rotate everything that is overdue, for a scheduled job
  medkeys keys rotate --due --force --password-stdin < password.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")

		purposes := make([]keystore.Purpose, 0, len(args))
		for _, arg := range args {
			p, err := keystore.ParsePurpose(arg)
			if err != nil {
				return report(err)
			}
			purposes = append(purposes, p)
		}
		if !rotateDue && len(purposes) == 0 {
			return report(fmt.Errorf("name at least one key purpose or use %s", ui.Flag.Sprint("--due")))
		}

		passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: "})
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Rotating keys...", verbose)
		defer cleanup()

		if !rotateForce && !rotateDue {
			if !utils.IsTerminal() {
				return fail(spinner, fmt.Errorf("cannot ask for confirmation without a terminal (hint: use %s)", ui.Flag.Sprint("--force")))
			}
			if !confirmRotate(spinner, purposes, os.Stdin) {
				spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Key rotation cancelled."
				return nil
			}
		}

		result, err := workflows.Rotate(context.Background(), workflows.RotateOptions{
			SessionOptions: sessionOptions(passwords[0]),
			Purposes:       purposes,
			Due:            rotateDue,
			ActorID:        rotateActor,
		})
		if err != nil {
			if result != nil && len(result.Rotated) > 0 {
				Logger.Warnf("Rotated %d key(s) before the failure", len(result.Rotated))
			}
			return fail(spinner, err)
		}

		if len(result.Rotated) == 0 {
			spinner.FinalMSG = ui.Success.Sprint("✓") + " No keys were due for rotation"
			return nil
		}

		var b strings.Builder
		for _, p := range result.Rotated {
			b.WriteString(ui.Success.Sprint("✓") + " Rotated " + ui.Highlight.Sprint(ui.PurposeLabel(p)) + "\n")
		}
		b.WriteString("\n" + formatKeyTable(result.Keys))
		spinner.FinalMSG = b.String()
		return nil
	},
}
