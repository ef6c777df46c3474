package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/medeasy/medkeys/internal/configs"
	"github.com/medeasy/medkeys/internal/ui"
	"github.com/medeasy/medkeys/internal/workflows"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configShowJSON bool
	configShowTOML bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configShowCmd.Flags().BoolVar(&configShowTOML, "toml", false, "output in TOML format")
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
	configShowTOML = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration medkeys would run with: the file if it exists,
otherwise the defaults, with environment overrides applied.

Examples:
  medkeys config show
  medkeys config show --json
  medkeys config show --toml > config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config show command")
		ConfigLogger.Debugf("Flags: json=%t, toml=%t", configShowJSON, configShowTOML)

		result, err := workflows.ShowConfig(context.Background(), configFile)
		if err != nil {
			return report(err)
		}

		switch {
		case configShowJSON:
			return outputConfigJSON(result.Config)
		case configShowTOML:
			return toml.NewEncoder(os.Stdout).Encode(result.Config)
		}
		outputConfigText(result)
		return nil
	},
}

// outputConfigJSON outputs the config in JSON format.
func outputConfigJSON(config *configs.Config) error {
	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return ConfigLogger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
	}
	fmt.Println(string(output))
	return nil
}

// outputConfigText outputs the config in human-readable format.
func outputConfigText(result *workflows.ConfigResult) {
	config := result.Config
	source := ui.Path.Sprint(result.Path)
	if !result.Exists {
		source = ui.Muted.Sprint("defaults, no file at " + result.Path)
	}

	fmt.Println(color.CyanString("Configuration") + " " + source)
	fmt.Println()
	if config.Installation.ID != "" {
		fmt.Printf("  %-18s %s\n", "Installation:", color.YellowString(config.Installation.ID))
	}
	fmt.Printf("  %-18s %s\n", "Key store:", ui.Path.Sprint(config.Keys.StorePath))
	fmt.Printf("  %-18s %d days\n", "Rotation base:", config.Keys.RotationIntervalDays)
	fmt.Printf("  %-18s %s\n", "Audit log:", ui.Path.Sprint(config.Audit.LogPath))
	fmt.Printf("  %-18s %t\n", "Production:", config.Security.Production)
	fmt.Printf("  %-18s %t\n", "Encryption:", config.Security.EncryptionEnabled)
	fmt.Printf("  %-18s %d KiB, %d iterations, %d lanes\n", "Argon2id:", config.KDF.MemoryKiB, config.KDF.Iterations, config.KDF.Parallelism)

	if !config.KDFParams().MeetsPolicy() {
		fmt.Println()
		fmt.Println(ui.Warning.Sprint("⚠") + " Argon2id parameters are below the production minimum")
	}
}
