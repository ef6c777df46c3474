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

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the key store",
	Long: `Creates the key store protected by a new master password.

On first use this also writes config.toml with the defaults and a fresh
installation id. The master password cannot be recovered; create recovery
data with ` + "`medkeys keys recovery`" + ` afterwards.

Running init again against an existing store only checks the password.

Examples:
  # Create the key store
  medkeys keys init

  # Scripted setup
  echo "$MASTER_PASSWORD" | medkeys keys init --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: ", confirm: true})
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Deriving master key...", verbose)
		defer cleanup()

		result, err := workflows.Init(context.Background(), workflows.InitOptions{
			SessionOptions: sessionOptions(passwords[0]),
		})
		if err != nil {
			return fail(spinner, err)
		}

		var b strings.Builder
		if result.ConfigCreated {
			b.WriteString(ui.Success.Sprint("✓") + " Wrote configuration to " + ui.Path.Sprint(result.ConfigPath) + "\n")
		}
		if !result.Created {
			b.WriteString(ui.Success.Sprint("✓") + " Key store already exists and the password is correct\n")
			b.WriteString(ui.Info.Sprint("→") + " " + ui.Path.Sprint(result.StorePath))
			spinner.FinalMSG = b.String()
			return nil
		}

		b.WriteString(ui.Success.Sprint("✓") + " Key store created at " + ui.Path.Sprint(result.StorePath) + "\n\n")
		b.WriteString(formatKeyTable(result.Keys))
		b.WriteString("\n" + ui.Warning.Sprint("⚠") + " The master password cannot be recovered.\n")
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("medkeys keys recovery") + " or " +
			ui.Code.Sprint("medkeys keys shares") + " and store the result offline")
		spinner.FinalMSG = b.String()
		return nil
	},
}

// formatKeyTable renders one line per data key with its German label,
// version and rotation state.
func formatKeyTable(statuses []keys.KeyStatus) string {
	var b strings.Builder
	for _, s := range statuses {
		label := ui.Pad(ui.PurposeLabel(s.Purpose), 12)
		state := ui.StatusFormatter(s.Status).Sprint(ui.Pad(ui.StatusLabel(s.Status), 12))
		fmt.Fprintf(&b, "  %s v%-3d %s %s\n", label, s.Metadata.Version, state, dueText(s))
	}
	return b.String()
}

func dueText(s keys.KeyStatus) string {
	if s.Status == keys.Unknown {
		return ""
	}
	due := s.Metadata.RotationDueAt.Format("2006-01-02")
	switch {
	case s.Status == keys.Overdue:
		return ui.Muted.Sprintf("fällig seit %s", due)
	case s.DaysUntilDue == 0:
		return ui.Muted.Sprint("heute fällig")
	default:
		return ui.Muted.Sprintf("fällig am %s, in %d Tagen", due, s.DaysUntilDue)
	}
}
