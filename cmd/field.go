package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/utils"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	fieldPurpose   string
	fieldInsurance bool

	FieldCmd = &cobra.Command{
		Use:   "field",
		Short: "Encrypt, decrypt and hash single field values",
		Long: `Applies the field cipher the application uses for patient data. Useful
for support and for checking exported values by hand.

Encrypted values are base64 of nonce, ciphertext and tag.`,
		PersistentPreRun: initLogger,
	}
)

func init() {
	addSessionFlags(FieldCmd)

	for _, c := range []*cobra.Command{fieldEncryptCmd, fieldDecryptCmd} {
		c.Flags().StringVarP(&fieldPurpose, "purpose", "p", "field_patient", "data key to use")
	}
	fieldHashCmd.Flags().BoolVar(&fieldInsurance, "insurance-number", false, "require an AHV number (756.1234.5678.97)")

	FieldCmd.AddCommand(fieldEncryptCmd)
	FieldCmd.AddCommand(fieldDecryptCmd)
	FieldCmd.AddCommand(fieldHashCmd)
}

// resetFieldCommandState resets the field commands' global state for testing.
func resetFieldCommandState() {
	fieldPurpose = "field_patient"
	fieldInsurance = false
}

// GetFieldCmd returns the FieldCmd for testing.
func GetFieldCmd() *cobra.Command {
	return FieldCmd
}

var fieldEncryptCmd = &cobra.Command{
	Use:   "encrypt value",
	Short: "Encrypt a value with a data key",
	Long: `Encrypts a value with the data key for --purpose and prints the result.

Examples:
  medkeys field encrypt "Müller, Anna"
  medkeys field encrypt --purpose field_transcript "Befund: unauffällig"

  # Read the value from a pipe instead of the command line
  cat befund.txt | medkeys field encrypt --purpose field_transcript -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runField(cmd, args[0], workflows.EncryptField)
	},
}

var fieldDecryptCmd = &cobra.Command{
	Use:   "decrypt value",
	Short: "Decrypt a value produced by field encrypt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runField(cmd, args[0], workflows.DecryptField)
	},
}

func runField(cmd *cobra.Command, value string, run func(context.Context, workflows.FieldOptions) (*workflows.FieldResult, error)) error {
	Logger.Infof("Starting field %s command", cmd.Name())

	purpose, err := keystore.ParsePurpose(fieldPurpose)
	if err != nil {
		return report(err)
	}

	value, err = fieldValue(value, passwordStdin)
	if err != nil {
		return report(err)
	}

	passwords, err := readPasswords(cmd, passwordPrompt{label: "Master password: "})
	if err != nil {
		return report(err)
	}
	defer wipePasswords(passwords)

	spinner, cleanup := startSpinner("Unlocking key store...", verbose)
	defer cleanup()

	result, err := run(context.Background(), workflows.FieldOptions{
		SessionOptions: sessionOptions(passwords[0]),
		Purpose:        purpose,
		Value:          strings.TrimSpace(value),
	})
	if err != nil {
		return fail(spinner, err)
	}

	Logger.Debugf("Used the %s key", result.Purpose)
	spinner.FinalMSG = result.Value
	return nil
}

var fieldHashCmd = &cobra.Command{
	Use:   "hash value",
	Short: "Print the lookup hash of a value",
	Long: `Prints the SHA-256 hex digest the application stores next to encrypted
values for lookups. No password is needed.

Examples:
  medkeys field hash "anna.mueller@example.ch"
  medkeys field hash --insurance-number 756.1234.5678.97`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := fieldValue(args[0], false)
		if err != nil {
			return report(err)
		}
		hash, err := workflows.HashField(context.Background(), workflows.HashOptions{
			Value:           strings.TrimSpace(value),
			InsuranceNumber: fieldInsurance,
		})
		if err != nil {
			return report(err)
		}
		fmt.Println(hash)
		return nil
	},
}

// fieldValue returns arg, or the piped input when arg is "-". Stdin carries
// only one of the two, so "-" is refused together with --password-stdin.
func fieldValue(arg string, passwordOnStdin bool) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	if passwordOnStdin {
		return "", fmt.Errorf("cannot read both the value and the password from stdin")
	}
	data, err := utils.ReadStdin()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
