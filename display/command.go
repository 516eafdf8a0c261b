package display

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prompteng/ape/prompt"
)

// ShouldOutputJSON determines if a command should output JSON based on
// flags and agent detection
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return IsAgentEnvironment()
	}

	// An explicit --json on the command wins either way
	if cmd.Flags().Changed("json") {
		if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
			return true
		}
		return false
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	// No explicit flag: agents default to JSON
	return IsAgentEnvironment()
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// RenderError formats an error for the terminal, giving template format
// errors their field-highlighted rendering
func RenderError(err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := prompt.AsFormatError(err); ok && !ShouldDisableColor() {
		return fe.Pretty()
	}
	return err.Error()
}
