package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prompteng/ape/config"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/prompt"
)

// ReformatCmd rewrites a template with an output contract
var ReformatCmd = &cobra.Command{
	Use:   "reformat <template.prompt>",
	Short: "Constrain a template's responses to a parseable XML or JSON contract",
	Long: `Rewrite a prompt template so completion responses can be parsed
mechanically: an output contract is appended to the system section, the
few-shot placeholder is inserted into the user section, and input
references gain boundary markers. Applying the same mode twice changes
nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeStr, _ := cmd.Flags().GetString("mode")
		mode, err := prompt.ParseMode(modeStr)
		if err != nil {
			return err
		}

		body, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "reading %s", args[0])
		}

		tpl, err := prompt.Parse(string(body))
		if err != nil {
			return err
		}

		out, err := prompt.Transform(tpl, mode)
		if err != nil {
			return err
		}

		text, err := out.Text()
		if err != nil {
			return err
		}

		if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
			if err := os.WriteFile(outPath, []byte(text), config.DefaultFilePermissions); err != nil {
				return errors.Wrapf(err, "writing %s", outPath)
			}
			fmt.Printf("Wrote %s\n", outPath)
			return nil
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	ReformatCmd.Flags().String("mode", "xml", "Output contract: xml or json")
	ReformatCmd.Flags().StringP("output", "o", "", "Write the rewritten template here instead of stdout")
}
