package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/ai/tracker"
	"github.com/prompteng/ape/display"
	"github.com/prompteng/ape/errors"
)

// UsageCmd reports completion usage and cost from the tracker
var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show completion usage and cost statistics",
	Long: `Aggregate the recorded completion calls: totals, success rate and
cost, optionally broken down per model. The window defaults to the
last 7 days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sinceStr, _ := cmd.Flags().GetString("since")
		window, err := parseWindow(sinceStr)
		if err != nil {
			return err
		}
		since := time.Now().UTC().Add(-window)

		database, err := openDatabase(cfg, "")
		if err != nil {
			return err
		}
		defer database.Close()

		t := tracker.NewUsageTracker(database, verbosityFrom(cmd))

		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			stats, err := t.GetRunUsage(runID)
			if err != nil {
				return err
			}
			return outputStats(cmd, fmt.Sprintf("Run %s", runID), stats)
		}

		stats, err := t.GetUsageStats(since)
		if err != nil {
			return err
		}

		if models, _ := cmd.Flags().GetBool("models"); models {
			breakdown, err := t.GetModelBreakdown(since)
			if err != nil {
				return err
			}
			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(map[string]interface{}{
					"stats":  stats,
					"models": breakdown,
				})
			}
			if err := outputStats(cmd, fmt.Sprintf("Last %s", sinceStr), stats); err != nil {
				return err
			}
			rows := pterm.TableData{{"MODEL", "CALLS", "TOKENS", "COST", "AVG LATENCY"}}
			for _, m := range breakdown {
				latency := "-"
				if m.AvgResponseTimeMs != nil {
					latency = fmt.Sprintf("%.0fms", *m.AvgResponseTimeMs)
				}
				rows = append(rows, []string{
					m.ModelName,
					strconv.Itoa(m.RequestCount),
					strconv.Itoa(m.TotalTokens),
					fmt.Sprintf("$%.4f", m.TotalCost),
					latency,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		}

		return outputStats(cmd, fmt.Sprintf("Last %s", sinceStr), stats)
	},
}

func outputStats(cmd *cobra.Command, heading string, stats *tracker.UsageStats) error {
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(stats)
	}

	pterm.DefaultSection.Println(heading)
	fmt.Printf("  Requests:      %d (%.0f%% ok)\n", stats.TotalRequests, stats.SuccessRate*100)
	fmt.Printf("  Tokens:        %d\n", stats.TotalTokens)
	fmt.Printf("  Cost:          $%.4f\n", stats.TotalCost)
	return nil
}

// parseWindow accepts Go durations plus a day suffix: "7d", "24h", "90m"
func parseWindow(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 1 {
			return 0, errors.Newf("invalid window %q (expected e.g. 7d or 24h)", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.Newf("invalid window %q (expected e.g. 7d or 24h)", s)
	}
	return d, nil
}

func init() {
	UsageCmd.Flags().String("since", "7d", "Reporting window (e.g. 7d, 24h)")
	UsageCmd.Flags().Bool("models", false, "Break usage down per model")
	UsageCmd.Flags().String("run", "", "Show usage for one run ID instead of a window")
	UsageCmd.Flags().Bool("json", false, "Output as JSON")
}
