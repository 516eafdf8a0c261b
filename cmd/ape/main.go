package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prompteng/ape/cmd/ape/commands"
	"github.com/prompteng/ape/display"
	"github.com/prompteng/ape/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ape",
	Short: "ape - automatic prompt engineering toolkit",
	Long: `ape - automatic prompt engineering toolkit.

ape parses, renders and rewrites prompt template files, and derives
natural-language descriptions of datasets by iteratively observing
batches of examples with a completion model.

Available commands:
  describe   - Derive observations and a summary for a dataset file
  reformat   - Constrain a template's responses to XML or JSON
  render     - Render a template's system/user prompts with variables
  run        - Render a template, complete it, and extract the outputs
  templates  - Manage the template library
  config     - Manage configuration
  usage      - Show completion usage and cost statistics
  mcp        - Serve the workflows over Model Context Protocol

Examples:
  ape describe data.jsonl              # Describe a dataset
  ape reformat qa.prompt --mode xml    # Add an XML output contract
  ape render qa.prompt --var question="What is 2+2?"
  ape templates list                   # List saved templates
  ape usage --since 7d                 # Last week's API spend`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")
		jsonOutput := display.ShouldOutputJSON(cmd)
		if err := logger.InitializeWithLevel(jsonOutput, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output")

	rootCmd.AddCommand(commands.DescribeCmd)
	rootCmd.AddCommand(commands.ReformatCmd)
	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.TemplatesCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.UsageCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, display.RenderError(err))
		os.Exit(1)
	}
}
