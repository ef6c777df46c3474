package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/utils"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	sharesThreshold int
	sharesCount     int
	recoveryFile    string
)

func init() {
	keysSharesCmd.Flags().IntVarP(&sharesThreshold, "threshold", "t", 2, "number of shares needed to rebuild the master key")
	keysSharesCmd.Flags().IntVarP(&sharesCount, "count", "n", 3, "number of shares to create")
	keysVerifyRecoveryCmd.Flags().StringVarP(&recoveryFile, "file", "f", "", "read the recovery data from a file")
}

// resetSharesCommandState resets the recovery commands' global state for testing.
func resetSharesCommandState() {
	sharesThreshold = 2
	sharesCount = 3
	recoveryFile = ""
}

var keysRecoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Create password-protected recovery data",
	Long: `Wraps the master key under a separate recovery password and prints the
result. medkeys keeps only a fingerprint of it; store the printed data
offline, for example on paper in the practice safe.

Creating new recovery data replaces the previous one.

With --password-stdin the master password is read from the first line and
the recovery password from the second.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting recovery command")

		passwords, err := readPasswords(cmd,
			passwordPrompt{label: "Master password: "},
			passwordPrompt{label: "Recovery password: ", confirm: true},
		)
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Creating recovery data...", verbose)
		defer cleanup()

		result, err := workflows.CreateRecovery(context.Background(), workflows.RecoveryOptions{
			SessionOptions:   sessionOptions(passwords[0]),
			RecoveryPassword: passwords[1],
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Recovery data created\n\n" +
			ui.Secret.Sprint(result.Data) + "\n\n" +
			ui.Warning.Sprint("⚠") + " This is the only copy. Store it together with the recovery password hint, not on this computer."
		return nil
	},
}

var keysVerifyRecoveryCmd = &cobra.Command{
	Use:   "verify-recovery [data]",
	Short: "Check recovery data against the key store",
	Long: `Checks that recovery data is the current one for this key store and that
the recovery password opens it. Nothing is changed.

Examples:
  medkeys keys verify-recovery eyJzYWx0Ijoi...
  medkeys keys verify-recovery --file recovery.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting verify-recovery command")

		data, err := recoveryData(args)
		if err != nil {
			return report(err)
		}
		Logger.Debugf("Recovery data: %s", utils.MaskSecret(data))

		passwords, err := readPasswords(cmd,
			passwordPrompt{label: "Master password: "},
			passwordPrompt{label: "Recovery password: "},
		)
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Verifying recovery data...", verbose)
		defer cleanup()

		err = workflows.VerifyRecovery(context.Background(), workflows.RecoveryOptions{
			SessionOptions:   sessionOptions(passwords[0]),
			RecoveryPassword: passwords[1],
			Data:             data,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Recovery data is valid"
		return nil
	},
}

func recoveryData(args []string) (string, error) {
	switch {
	case recoveryFile != "" && len(args) > 0:
		return "", fmt.Errorf("pass the recovery data either as an argument or with --file, not both")
	case recoveryFile != "":
		Logger.Debugf("Reading recovery data from %s", recoveryFile)
		raw, err := os.ReadFile(recoveryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read recovery data: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	case len(args) == 1:
		return strings.TrimSpace(args[0]), nil
	default:
		return "", fmt.Errorf("no recovery data given")
	}
}

var keysSharesCmd = &cobra.Command{
	Use:   "shares",
	Short: "Split the master key into recovery shares",
	Long: `Splits the master key into --count shares of which any --threshold
rebuild it. Hand each share to a different person; fewer than the threshold
reveal nothing about the key.

Examples:
  # Three shares, any two rebuild the key
  medkeys keys shares

  # Five shares for the practice partners, any three rebuild the key
  medkeys keys shares --threshold 3 --count 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting shares command")

		passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: "})
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Creating recovery shares...", verbose)
		defer cleanup()

		result, err := workflows.CreateShares(context.Background(), workflows.SharesOptions{
			SessionOptions: sessionOptions(passwords[0]),
			Threshold:      sharesThreshold,
			Count:          sharesCount,
		})
		if err != nil {
			return fail(spinner, err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s Created %d shares, any %d rebuild the master key\n\n", ui.Success.Sprint("✓"), len(result.Shares), result.Threshold)
		for i, share := range result.Shares {
			fmt.Fprintf(&b, "%s %s\n", ui.Muted.Sprintf("share %d", i+1), ui.Secret.Sprint(share))
		}
		b.WriteString("\n" + ui.Warning.Sprint("⚠") + " Shares are shown only once")
		spinner.FinalMSG = b.String()
		return nil
	},
}

var keysVerifySharesCmd = &cobra.Command{
	Use:   "verify-shares share...",
	Short: "Check that recovery shares rebuild the master key",
	Long: `Combines the given shares and compares the result with the master key.
Nothing is changed.

Example:
  medkeys keys verify-shares eyJpbmRleCI6MS... eyJpbmRleCI6My...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting verify-shares command")
		for i, share := range args {
			Logger.Debugf("Share %d: %s", i+1, utils.MaskSecret(share))
		}

		passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: "})
		if err != nil {
			return report(err)
		}
		defer wipePasswords(passwords)

		spinner, cleanup := startSpinner("Verifying recovery shares...", verbose)
		defer cleanup()

		err = workflows.VerifyShares(context.Background(), workflows.SharesOptions{
			SessionOptions: sessionOptions(passwords[0]),
			Shares:         args,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" %d shares rebuild the master key", len(args))
		return nil
	},
}
