package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/ai/limits"
	"github.com/prompteng/ape/ai/openrouter"
	"github.com/prompteng/ape/ai/provider"
	"github.com/prompteng/ape/display"
	"github.com/prompteng/ape/internal/id"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
)

// RunCmd renders a template, completes it, and extracts the outputs
var RunCmd = &cobra.Command{
	Use:   "run <template|name>",
	Short: "Render a template, send it to the model, and extract the outputs",
	Long: `Render a template with the given variables, send the prompts to the
configured completion provider, and parse the response according to the
template's response format. Structured templates (xml/json) yield one
value per declared output; text templates yield the whole response.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tpl, _, err := resolveTemplate(cmd, cfg, args[0])
		if err != nil {
			return err
		}

		pairs, _ := cmd.Flags().GetStringArray("var")
		vars, err := parseVars(pairs)
		if err != nil {
			return err
		}

		system, user, err := tpl.Render(vars)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg, "")
		if err != nil {
			logger.Warnw("Usage tracking disabled", "error", err)
			database = nil
		} else {
			defer database.Close()
		}

		runID := id.NewRun()
		var client provider.CompletionClient
		if providerName, _ := cmd.Flags().GetString("provider"); providerName != "" {
			p, err := provider.ParseProvider(providerName)
			if err != nil {
				return err
			}
			client = provider.NewCompletionClientWithProvider(cfg, p, provider.ClientConfig{
				DB:            database,
				Verbosity:     verbosityFrom(cmd),
				OperationType: "run",
				RunID:         runID,
			})
		} else {
			client = provider.NewCompletionClient(cfg, database, verbosityFrom(cmd), "run", runID)
		}
		limited := limits.Wrap(client, limits.Config{
			RequestsPerMinute: cfg.AI.Limits.RequestsPerMinute,
			MaxCallsPerRun:    cfg.AI.Limits.MaxCallsPerRun,
		})

		req := openrouter.ChatRequest{
			SystemPrompt: system,
			UserPrompt:   user,
			Temperature:  tpl.Temperature,
			MaxTokens:    tpl.MaxTokens,
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			req.Model = &model
		} else if tpl.Model != "" {
			req.Model = &tpl.Model
		}

		if stream, _ := cmd.Flags().GetBool("stream"); stream {
			return streamResponse(cmd, limited, req)
		}

		resp, err := limited.Chat(cmd.Context(), req)
		if err != nil {
			return err
		}

		if len(tpl.Outputs) == 0 {
			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(map[string]string{"response": resp.Content})
			}
			fmt.Println(resp.Content)
			return nil
		}

		outputs, err := prompt.ExtractOutputs(tpl, resp.Content)
		if err != nil {
			// Surface the raw response so nothing is lost
			fmt.Fprintln(cmd.ErrOrStderr(), "Raw response:")
			fmt.Fprintln(cmd.ErrOrStderr(), resp.Content)
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(outputs)
		}

		for _, out := range tpl.Outputs {
			pterm.DefaultSection.Println(out.Name)
			fmt.Println(outputs[out.Name])
		}
		return nil
	},
}

// streamResponse prints the raw response to stdout as chunks arrive.
// Extraction needs the complete response, so structured output parsing
// is skipped in streaming mode.
func streamResponse(cmd *cobra.Command, client *limits.Client, req openrouter.ChatRequest) error {
	chunks := make(chan provider.StreamChunk, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStreaming(cmd.Context(), req, chunks)
		close(chunks)
	}()

	for chunk := range chunks {
		if chunk.Error != nil {
			fmt.Println()
			return chunk.Error
		}
		fmt.Print(chunk.Content)
		if chunk.Done {
			break
		}
	}
	fmt.Println()
	return <-errCh
}

func init() {
	RunCmd.Flags().StringArray("var", nil, "Template variable as key=value (repeatable)")
	RunCmd.Flags().String("provider", "", "Completion provider: openrouter, anthropic or auto")
	RunCmd.Flags().String("model", "", "Model override, e.g. openai/gpt-4o")
	RunCmd.Flags().Bool("json", false, "Output extracted values as JSON")
	RunCmd.Flags().Bool("stream", false, "Print the raw response as it arrives (skips output extraction)")
}
