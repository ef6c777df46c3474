package configs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// HomeEnv overrides both the config and the data directory.
const HomeEnv = "MEDKEYS_HOME"

type Settings struct {
	ConfigDir  string
	DataDir    string
	ConfigPath string
}

var MedkeysSettings *Settings

func init() {
	settings, err := ResolveSettings()
	if err != nil {
		log.Fatalf("error resolving medkeys directories: %s", err)
	}
	MedkeysSettings = settings
}

// ResolveSettings works out where configuration and data live. MEDKEYS_HOME
// wins; otherwise the config goes to the user config dir and data follows
// XDG_DATA_HOME (default ~/.local/share).
func ResolveSettings() (*Settings, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return &Settings{
			ConfigDir:  home,
			DataDir:    home,
			ConfigPath: filepath.Join(home, "config.toml"),
		}, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting config directory: %w", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return &Settings{
		ConfigDir:  filepath.Join(configDir, "medkeys"),
		DataDir:    filepath.Join(dataDir, "medkeys"),
		ConfigPath: filepath.Join(configDir, "medkeys", "config.toml"),
	}, nil
}
