package cmd

import (
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configVerbose bool
	configDebug   bool
	configFile    string
	ConfigLogger  logger.Logger

	// ConfigCmd is the top-level config command.
	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage medkeys configuration",
		Long: `Provides commands for writing and inspecting config.toml.

The file lives in the user config directory (for example
~/.config/medkeys/config.toml) unless MEDKEYS_HOME is set.
MEDKEYS_PRODUCTION and MEDKEYS_ENCRYPTION override the [security] section.

Examples:
  # Write the defaults
  medkeys config init

  # Write a production configuration
  medkeys config init --production

  # Show the effective configuration
  medkeys config show`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ConfigLogger = logger.Logger{
				Verbose: configVerbose,
				Debug:   configDebug,
			}
			ConfigLogger.Debugf("Initializing config command with verbose=%t, debug=%t", configVerbose, configDebug)
		},
	}
)

func init() {
	ConfigCmd.PersistentFlags().BoolVarP(&configVerbose, "verbose", "v", false, "enable verbose output")
	ConfigCmd.PersistentFlags().BoolVarP(&configDebug, "debug", "d", false, "enable debug output")
	ConfigCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.toml")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

// GetConfigCmd returns the ConfigCmd for testing.
func GetConfigCmd() *cobra.Command {
	return ConfigCmd
}

// resetConfigState resets all config command global variables to their default values for testing.
func resetConfigState() {
	configVerbose = false
	configDebug = false
	configFile = ""
	resetConfigInitState()
	resetConfigShowState()
}
