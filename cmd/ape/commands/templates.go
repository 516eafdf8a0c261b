package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/display"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/store"
)

// TemplatesCmd manages the template library
var TemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the template library",
	Long: `Save, inspect and remove templates in the local library. Saving an
existing name creates a new version; lookups default to the latest.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates (latest version of each)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		records, err := s.List(cmd.Context())
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(records)
		}

		if len(records) == 0 {
			fmt.Println("No templates saved. Add one with: ape templates add <file.prompt>")
			return nil
		}

		rows := pterm.TableData{{"NAME", "VERSION", "MODEL", "DESCRIPTION"}}
		for _, rec := range records {
			rows = append(rows, []string{
				rec.Name,
				fmt.Sprintf("v%d", rec.Version),
				rec.Model,
				rec.Description,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved template's body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		var rec *store.Record
		if version, _ := cmd.Flags().GetInt("version"); version > 0 {
			rec, err = s.GetVersion(cmd.Context(), args[0], version)
		} else {
			rec, err = s.Get(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(rec)
		}
		fmt.Print(rec.Body)
		return nil
	},
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <file.prompt>",
	Short: "Validate and save a template file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "reading %s", args[0])
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), ".prompt")
		}

		s, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		rec, err := s.Save(cmd.Context(), name, string(body))
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(rec)
		}
		fmt.Printf("Saved %s v%d (%s)\n", rec.Name, rec.Version, rec.ID)
		return nil
	},
}

var templatesRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a template and all its versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := s.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s (%d version(s))\n", args[0], n)
		return nil
	},
}

var templatesFetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Download a template pack and import every *.prompt it contains",
	Long: `Fetch a template pack from a go-getter source (http(s), git, s3 or a
local path) and save every valid *.prompt file into the library.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		records, err := s.FetchAndImport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(records)
		}
		for _, rec := range records {
			fmt.Printf("Imported %s v%d\n", rec.Name, rec.Version)
		}
		return nil
	},
}

// openStore opens the configured database and wraps it in a Store. The
// returned closer must be deferred.
func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := openDatabase(cfg, "")
	if err != nil {
		return nil, nil, err
	}
	return store.New(database, logger.Logger), func() { database.Close() }, nil
}

func init() {
	templatesShowCmd.Flags().Int("version", 0, "Show a specific version instead of the latest")
	templatesAddCmd.Flags().String("name", "", "Library name (default: filename without .prompt)")
	templatesListCmd.Flags().Bool("json", false, "Output as JSON")
	templatesShowCmd.Flags().Bool("json", false, "Output as JSON")
	templatesAddCmd.Flags().Bool("json", false, "Output as JSON")
	templatesFetchCmd.Flags().Bool("json", false, "Output as JSON")

	TemplatesCmd.AddCommand(templatesListCmd)
	TemplatesCmd.AddCommand(templatesShowCmd)
	TemplatesCmd.AddCommand(templatesAddCmd)
	TemplatesCmd.AddCommand(templatesRmCmd)
	TemplatesCmd.AddCommand(templatesFetchCmd)
}
