package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/store"
	"github.com/handlescan/handlescan/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored check results",
}

var historyListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List stored checks for a username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.ToLower(strings.TrimSpace(args[0]))
		if err := core.ValidateUsername(username); err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		records, err := st.ListHistory(ctx, username, limit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Printf("No stored checks for %s.\n", username)
			return nil
		}

		fmt.Printf("History for %s (%d checks):\n", username, len(records))
		for i := range records {
			record := &records[i]
			fmt.Printf("- %s  %s  [%s]\n",
				record.Timestamp.UTC().Format(time.RFC3339),
				historySummary(record),
				shortCheckID(record.CheckID))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <check-id>",
	Short: "Show one stored check in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checkID := strings.TrimSpace(args[0])
		if checkID == "" {
			return errors.New("check id is required")
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		result, err := st.GetCheck(ctx, checkID)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("check %q not found", checkID)
		}
		rehydrateOutcomes(result)

		format, err := resolveOutputFormat()
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(format).FormatCheck(result)
		if err != nil {
			return err
		}
		if rendered != "" {
			fmt.Println(rendered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyListCmd.Flags().Int("limit", store.DefaultHistoryLimit, "Maximum checks to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func historySummary(result *core.CheckResult) string {
	summary := fmt.Sprintf("%d/%d available", len(result.Available), result.Probed())
	if unknown := len(result.Unknown); unknown > 0 {
		summary += fmt.Sprintf(", %d unknown", unknown)
	}
	return summary
}

func shortCheckID(checkID string) string {
	if len(checkID) > 8 {
		return checkID[:8]
	}
	return checkID
}

// rehydrateOutcomes rebuilds per-platform outcomes for a stored result so
// the formatters have rows to render. Probe detail is not persisted, so the
// notes come back empty.
func rehydrateOutcomes(result *core.CheckResult) {
	if result == nil || len(result.Outcomes) > 0 {
		return
	}

	outcomes := make([]core.ProbeOutcome, 0, result.Probed())
	for _, id := range result.Available {
		outcomes = append(outcomes, core.ProbeOutcome{PlatformID: id, Verdict: core.VerdictAvailable})
	}
	for _, id := range result.Taken {
		outcomes = append(outcomes, core.ProbeOutcome{PlatformID: id, Verdict: core.VerdictTaken})
	}
	for _, id := range result.Unknown {
		outcomes = append(outcomes, core.ProbeOutcome{PlatformID: id, Verdict: core.VerdictUnknown})
	}
	result.Outcomes = outcomes
}
