package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/display"
)

// RenderCmd renders a template's prompts with variables filled in
var RenderCmd = &cobra.Command{
	Use:   "render <template|name>",
	Short: "Render a template's system and user prompts with variables",
	Long: `Parse a template (a file path or a library name, optionally
name@version) and interpolate the given variables, printing the system
and user prompts that would be sent to the model.`,
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

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]string{
				"system": system,
				"user":   user,
			})
		}

		if system != "" {
			pterm.DefaultSection.Println("System")
			fmt.Println(system)
		}
		pterm.DefaultSection.Println("User")
		fmt.Println(user)
		return nil
	},
}

func init() {
	RenderCmd.Flags().StringArray("var", nil, "Template variable as key=value (repeatable)")
	RenderCmd.Flags().Bool("json", false, "Output the rendered prompts as JSON")
}
