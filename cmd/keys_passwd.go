package cmd

import (
	"context"

	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var keysPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	Long: `Re-wraps every data key under a new master password. Data keys and
encrypted data are unchanged.

The master key is derived from the password, so recovery data and shares
created before the change no longer match and have to be created again.

With --password-stdin the current password is read from the first line and
the new password from the second.

Examples:
  medkeys keys passwd
  printf '%s\n%s\n' "$OLD" "$NEW" | medkeys keys passwd --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting passwd command")

		passwords, err := readPasswords(cmd,
			passwordPrompt{label: "Current master password: "},
			passwordPrompt{label: "New master password: ", confirm: true},
		)
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Changing master password...", verbose)
		defer cleanup()

		err = workflows.ChangePassword(context.Background(), workflows.PasswordOptions{
			SessionOptions: sessionOptions(passwords[0]),
			NewPassword:    passwords[1],
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Master password changed\n" +
			ui.Warning.Sprint("⚠") + " Existing recovery data and shares no longer match\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("medkeys keys recovery") + " to create new recovery data"
		return nil
	},
}
