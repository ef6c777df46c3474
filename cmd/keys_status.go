package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/medeasy/medkeys/internal/keys"
	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the rotation state of every data key",
	Long: `Lists every data key with its version, rotation state and due date.

Keys are due soon seven days before their rotation date and overdue after it.

Examples:
  medkeys keys status
  medkeys keys status --password-stdin < password.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: "})
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Unlocking key store...", verbose)
		defer cleanup()

		result, err := workflows.Status(context.Background(), workflows.StatusOptions{
			SessionOptions: sessionOptions(passwords[0]),
		})
		if err != nil {
			return fail(spinner, err)
		}
		Logger.Debugf("Store %s, base interval %d days", result.StorePath, result.RotationIntervalDays)

		var b strings.Builder
		b.WriteString("Key store " + ui.Path.Sprint(result.StorePath) + "\n\n")
		b.WriteString(formatKeyTable(result.Keys))

		switch overdue, soon := result.Summary[keys.Overdue], result.Summary[keys.DueSoon]; {
		case overdue > 0:
			b.WriteString("\n" + ui.Error.Sprint("✗") + fmt.Sprintf(" %d key(s) overdue\n", overdue))
			b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("medkeys keys rotate --due"))
		case soon > 0:
			b.WriteString("\n" + ui.Warning.Sprint("⚠") + fmt.Sprintf(" %d key(s) due within a week", soon))
		default:
			b.WriteString("\n" + ui.Success.Sprint("✓") + " All keys are up to date")
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
