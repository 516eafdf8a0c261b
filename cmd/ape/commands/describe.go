package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/dataset"
	"github.com/prompteng/ape/describe"
	"github.com/prompteng/ape/display"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/logger"
)

// DescribeCmd derives observations and a summary for a dataset file
var DescribeCmd = &cobra.Command{
	Use:   "describe <dataset.(jsonl|csv)>",
	Short: "Derive natural-language observations and a summary for a dataset",
	Long: `Iteratively show batches of dataset examples to a completion model,
merge the observations it makes into a deduplicated set, and stop when
the model has nothing new to add (or the iteration bound is hit). A
final call compresses the observations into a short summary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		examples, err := dataset.Load(args[0])
		if err != nil {
			return err
		}

		opts := describe.RunOptions{}
		opts.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		opts.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
		opts.Workers, _ = cmd.Flags().GetInt("workers")
		opts.Provider, _ = cmd.Flags().GetString("provider")
		opts.Model, _ = cmd.Flags().GetString("model")

		if budget, _ := cmd.Flags().GetInt("budget"); budget > 0 {
			cfg.AI.Limits.MaxCallsPerRun = budget
		}

		if priorPath, _ := cmd.Flags().GetString("prior"); priorPath != "" {
			raw, err := os.ReadFile(priorPath)
			if err != nil {
				return errors.Wrapf(err, "reading prior observations from %s", priorPath)
			}
			opts.Prior = describe.ParseObservations(string(raw))
		}

		database, err := openDatabase(cfg, "")
		if err != nil {
			// Tracking is best effort; the run itself does not need it
			logger.Warnw("Usage tracking disabled", "error", err)
			database = nil
		} else {
			defer database.Close()
		}

		session, err := describe.NewConfiguredSession(cfg, database, verbosityFrom(cmd), opts)
		if err != nil {
			return err
		}

		report, err := session.Run(cmd.Context(), examples)
		if err != nil {
			var ce *describe.CompletionError
			if errors.As(err, &ce) && ce.Set.Len() > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Run failed with %d observations collected:\n", ce.Set.Len())
				for _, text := range ce.Set.Texts() {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", text)
				}
			}
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(report)
		}

		pterm.DefaultSection.Println("Observations")
		for _, text := range report.Observations {
			fmt.Printf("  • %s\n", text)
		}
		pterm.DefaultSection.Println("Summary")
		fmt.Println("  " + report.Summary)
		fmt.Println()
		fmt.Printf("%s after %d iterations in %s (run %s)\n",
			statusLabel(report.Status), report.Iterations,
			report.Duration.Round(10*time.Millisecond), report.RunID)
		return nil
	},
}

func statusLabel(status describe.Status) string {
	if status == describe.StatusConverged {
		return pterm.Green("Converged")
	}
	return pterm.Yellow("Truncated at iteration bound") +
		" (partial but usable; raise --max-iterations for more)"
}

func init() {
	DescribeCmd.Flags().Int("batch-size", 0, "Examples shown per prompt (default from config)")
	DescribeCmd.Flags().Int("max-iterations", 0, "Observation calls before giving up (default from config)")
	DescribeCmd.Flags().Int("workers", 0, "Concurrent shards (default from config)")
	DescribeCmd.Flags().Int("budget", 0, "Hard cap on completion calls for this run")
	DescribeCmd.Flags().String("provider", "", "Completion provider: openrouter, anthropic or auto")
	DescribeCmd.Flags().String("model", "", "Model override, e.g. openai/gpt-4o")
	DescribeCmd.Flags().String("prior", "", "File of prior observations (one per line) to seed the run")
	DescribeCmd.Flags().Bool("json", false, "Output the report as JSON")
}
