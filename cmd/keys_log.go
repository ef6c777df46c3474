package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medeasy/medkeys/internal/audit"
	"github.com/medeasy/medkeys/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit   int
	logReverse bool
	logActor   string
	logAction  string
	logSince   string
	logUntil   string
	logJSON    bool
)

func init() {
	keysLogCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	keysLogCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	keysLogCmd.Flags().StringVar(&logActor, "actor", "", "filter by actor")
	keysLogCmd.Flags().StringVar(&logAction, "action", "", "filter by action (comma-separated)")
	keysLogCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	keysLogCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	keysLogCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logActor = ""
	logAction = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var keysLogCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of key operations. No password is needed.

Examples:
  medkeys keys log                          # View full log
  medkeys keys log -n 10                    # Last 10 entries
  medkeys keys log --reverse                # Most recent first
  medkeys keys log --action key_rotation    # Filter by action
  medkeys keys log --since 2026-01-01       # Filter by date
  medkeys keys log --json                   # JSON output`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	spinner, cleanup := startSpinner("Loading audit log...", verbose)
	defer cleanup()

	result, err := workflows.Log(context.Background(), workflows.LogOptions{
		ConfigPath: configPath,
		Limit:      logLimit,
		Reverse:    logReverse,
		Actor:      logActor,
		Actions:    logAction,
		Since:      logSince,
		Until:      logUntil,
	})
	if err != nil {
		return fail(spinner, err)
	}

	Logger.Debugf("Parsed %d entries from %s", result.TotalEntriesBeforeFilter, result.Path)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	spinner.FinalMSG = ""
	if len(result.Entries) == 0 {
		if result.TotalEntriesBeforeFilter == 0 {
			fmt.Println("No audit log entries found.")
		} else {
			fmt.Println("No audit log entries found matching the filters.")
		}
		return nil
	}

	if logJSON {
		return outputLogJSON(result.Entries)
	}
	outputLogDefault(result.Entries)
	return nil
}

func outputLogJSON(entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputLogDefault(entries []audit.Entry) {
	for _, e := range entries {
		datetime := workflows.FormatDateTime(e.Timestamp)
		fmt.Printf("%-19s  %-20s  %-14s  %s\n", datetime, e.Actor, e.Action, e.Message)
	}
}
