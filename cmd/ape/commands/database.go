package commands

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prompteng/ape/config"
	"github.com/prompteng/ape/db"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
	"github.com/prompteng/ape/store"
)

// openDatabase opens and migrates the configured database. An empty
// dbPath falls back to the config, then to ape.db in the home config
// directory.
func openDatabase(cfg *config.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving home directory")
		}
		dbPath = filepath.Join(home, ".ape", "ape.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), config.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "creating database directory for %s", dbPath)
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database at %s", dbPath)
	}
	return database, nil
}

// loadConfig loads configuration for a command
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}
	return cfg, nil
}

// verbosityFrom reads the global verbose count off the root command
func verbosityFrom(cmd *cobra.Command) int {
	verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")
	return verbosity
}

// resolveTemplate loads template text from a file path or, when the
// argument names no readable file, from the template library.
func resolveTemplate(cmd *cobra.Command, cfg *config.Config, arg string) (*prompt.Template, string, error) {
	if body, err := os.ReadFile(arg); err == nil {
		tpl, perr := prompt.Parse(string(body))
		if perr != nil {
			return nil, "", perr
		}
		return tpl, string(body), nil
	}

	// Not a file: treat as a library name, optionally name@version
	name := arg
	version := 0
	if at := strings.LastIndex(arg, "@"); at > 0 {
		v, err := strconv.Atoi(arg[at+1:])
		if err != nil || v < 1 {
			return nil, "", errors.Newf("invalid template version in %q", arg)
		}
		name, version = arg[:at], v
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return nil, "", err
	}
	defer database.Close()

	s := store.New(database, logger.Logger)
	var rec *store.Record
	if version > 0 {
		rec, err = s.GetVersion(cmd.Context(), name, version)
	} else {
		rec, err = s.Get(cmd.Context(), name)
	}
	if err != nil {
		return nil, "", err
	}

	tpl, err := prompt.Parse(rec.Body)
	if err != nil {
		return nil, "", err
	}
	return tpl, rec.Body, nil
}

// parseVars turns repeated --var k=v flags into a map
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, errors.Newf("invalid --var %q (expected key=value)", pair)
		}
		vars[k] = v
	}
	return vars, nil
}
