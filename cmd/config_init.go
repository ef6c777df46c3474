package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	configInitForce      bool
	configInitProduction bool
	configInitInterval   int
)

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVar(&configInitProduction, "production", false, "enable production safeguards")
	configInitCmd.Flags().IntVar(&configInitInterval, "rotation-days", 0, "base key rotation interval in days (default 90)")
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitForce = false
	configInitProduction = false
	configInitInterval = 0
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.toml with the defaults",
	Long: `Writes a configuration file with the default paths, rotation interval and
Argon2id parameters, and a fresh installation id.

Examples:
  medkeys config init
  medkeys config init --production --rotation-days 60
  medkeys config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config init command")

		spinner, cleanup := startSpinnerWithFlags("Writing configuration...", configVerbose, configDebug)
		defer cleanup()

		result, err := workflows.InitConfig(context.Background(), workflows.ConfigInitOptions{
			Path:                 configFile,
			Force:                configInitForce,
			Production:           configInitProduction,
			RotationIntervalDays: configInitInterval,
		})
		if errors.Is(err, workflows.ErrConfigExists) {
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " " + err.Error() + "\n" +
				ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite it"
			return reportedError{err: err}
		}
		if err != nil {
			return fail(spinner, err)
		}

		ConfigLogger.Debugf("Installation id %s", result.Config.Installation.ID)
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Configuration written to " + ui.Path.Sprint(result.Path) + "\n" +
			fmt.Sprintf("  %-16s %s\n", "Key store:", ui.Path.Sprint(result.Config.Keys.StorePath)) +
			fmt.Sprintf("  %-16s %s\n", "Audit log:", ui.Path.Sprint(result.Config.Audit.LogPath)) +
			fmt.Sprintf("  %-16s %t", "Production:", result.Config.Security.Production)
		return nil
	},
}
