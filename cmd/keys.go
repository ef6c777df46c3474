package cmd

import (
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose       bool
	debug         bool
	configPath    string
	passwordStdin bool
	Logger        logger.Logger

	KeysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Manage the master password and data keys",
		Long: `Creates and unlocks the key store, rotates data keys, changes the master
password, and produces recovery data.

Every command asks for the master password. Use --password-stdin to read it
from the first line of standard input instead.`,
		PersistentPreRun: initLogger,
	}
)

func init() {
	addSessionFlags(KeysCmd)

	KeysCmd.AddCommand(keysInitCmd)
	KeysCmd.AddCommand(keysStatusCmd)
	KeysCmd.AddCommand(keysRotateCmd)
	KeysCmd.AddCommand(keysPasswdCmd)
	KeysCmd.AddCommand(keysRecoveryCmd)
	KeysCmd.AddCommand(keysVerifyRecoveryCmd)
	KeysCmd.AddCommand(keysSharesCmd)
	KeysCmd.AddCommand(keysVerifySharesCmd)
	KeysCmd.AddCommand(keysLogCmd)
}

// addSessionFlags registers the flags shared by every command that unlocks
// the key store.
func addSessionFlags(c *cobra.Command) {
	c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	c.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	c.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")
	c.PersistentFlags().BoolVar(&passwordStdin, "password-stdin", false, "read passwords from stdin, one per line")
}

func initLogger(cmd *cobra.Command, args []string) {
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}
	Logger.Debugf("Initializing %s command with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
}

// Helper functions for testing

// GetKeysCmd returns the KeysCmd for testing.
func GetKeysCmd() *cobra.Command {
	return KeysCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	passwordStdin = false
	resetRotateCommandState()
	resetSharesCommandState()
	resetLogCommandState()
	resetFieldCommandState()
	resetConfigState()
	for _, c := range []*cobra.Command{KeysCmd, FieldCmd, ConfigCmd} {
		resetCobraFlagState(c)
	}
}

// resetCobraFlagState clears the Changed marks cobra keeps between runs.
func resetCobraFlagState(c *cobra.Command) {
	c.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range c.Commands() {
		sub.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
		})
	}
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
