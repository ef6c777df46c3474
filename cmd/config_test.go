package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medeasy/medkeys/internal/configs"
	"github.com/medeasy/medkeys/internal/workflows"
)

func TestConfigInit(t *testing.T) {
	setupTestEnvironment(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCLI(t, "", "config", "init", "--config", path, "--rotation-days", "60")
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Configuration written to") {
		t.Errorf("Expected success message, got: %s", output)
	}

	config, err := configs.Load(path)
	if err != nil {
		t.Fatalf("Failed to load written config: %v", err)
	}
	if config.Keys.RotationIntervalDays != 60 {
		t.Errorf("Expected rotation interval 60, got %d", config.Keys.RotationIntervalDays)
	}
	if config.Installation.ID == "" {
		t.Error("Expected an installation id")
	}

	output, err = runCLI(t, "", "config", "init", "--config", path)
	if !errors.Is(err, workflows.ErrConfigExists) {
		t.Errorf("Expected ErrConfigExists, got %v", err)
	}
	if !strings.Contains(output, "--force") {
		t.Errorf("Expected a hint about --force, got: %s", output)
	}

	if _, err := runCLI(t, "", "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("forced config init failed: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	configPath := setupTestEnvironment(t)

	output, err := runCLI(t, "", "config", "show", "--config", configPath)
	if err != nil {
		t.Fatalf("config show failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "90 days") {
		t.Errorf("Expected the rotation interval, got: %s", output)
	}
	if !strings.Contains(output, "below the production minimum") {
		t.Errorf("Expected a warning about the test KDF parameters, got: %s", output)
	}

	output, err = runCLI(t, "", "config", "show", "--toml", "--config", configPath)
	if err != nil {
		t.Fatalf("config show --toml failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "rotation_interval_days = 90") {
		t.Errorf("Expected TOML output, got: %s", output)
	}

	output, err = runCLI(t, "", "config", "show", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("config show failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "defaults, no file at") {
		t.Errorf("Expected defaults notice, got: %s", output)
	}
}
