package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medeasy/medkeys/internal/configs"
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/spf13/cobra"
)

const testPassword = "praxis-passwort"

// setupTestEnvironment writes a config.toml with cheap Argon2 parameters to
// a temporary directory, disables colors and resets the command state.
// It returns the config path.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv(configs.ProductionEnv, "false")
	t.Setenv(configs.EncryptionEnv, "true")

	dir := t.TempDir()
	config := configs.DefaultFor(dir)
	config.KDF = configs.KDFConfig{MemoryKiB: 64, Iterations: 1, Parallelism: 1}

	path := filepath.Join(dir, "config.toml")
	if err := configs.Save(path, config); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)
	return path
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// createTestCLI creates a complete CLI instance with stdin preset to input.
func createTestCLI(input string, args ...string) *cobra.Command {
	Logger = logger.Logger{}

	rootCmd := &cobra.Command{
		Use:           "medkeys",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(KeysCmd)
	rootCmd.AddCommand(FieldCmd)
	rootCmd.AddCommand(ConfigCmd)

	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	return rootCmd
}

// runCLI runs the CLI and returns its combined output.
func runCLI(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	defer ResetGlobalState()
	return captureOutput(func() error {
		return createTestCLI(input, args...).Execute()
	})
}

// initializeStore creates a key store for the config at configPath.
func initializeStore(t *testing.T, configPath string) {
	t.Helper()
	output, err := runCLI(t, testPassword+"\n", "keys", "init", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("Failed to initialize key store: %v\n%s", err, output)
	}
}

// lineAfter returns the first non-empty line following the line containing marker.
func lineAfter(output, marker string) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		for _, next := range lines[i+1:] {
			if strings.TrimSpace(next) != "" {
				return strings.TrimSpace(next)
			}
		}
	}
	return ""
}
