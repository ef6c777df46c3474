package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/common-nighthawk/go-figure"
	"github.com/medeasy/medkeys/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medkeys",
	Short: "medkeys - key management for encrypted medical records",
	Long: `medkeys manages the keys that protect patient data at rest: a master key
derived from the practice password, one data key per purpose, scheduled
rotation, and recovery data for when the password is lost.

Usage:
  medkeys <command> [flags]

Available Commands:
  keys      Create, unlock, rotate and recover keys
  field     Encrypt, decrypt and hash single values
  config    Manage config.toml

Run 'medkeys help <command>' for more details on a specific command.
`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(c *cobra.Command, args []string) {
		figure.NewColorFigure("medkeys", "small", "cyan", true).Print()
		fmt.Println()
		fmt.Println("Run 'medkeys --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.KeysCmd)
	rootCmd.AddCommand(cmd.FieldCmd)
	rootCmd.AddCommand(cmd.ConfigCmd)
}

func main() {
	// Wipe enclaves on Ctrl-C.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		if !cmd.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		memguard.SafeExit(1)
	}
}
