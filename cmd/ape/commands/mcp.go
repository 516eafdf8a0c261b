package commands

import (
	"github.com/spf13/cobra"

	"github.com/prompteng/ape/config"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/mcp"
)

// McpCmd serves the workflows over Model Context Protocol stdio
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve describe/reformat/parse tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing the ape workflows as
tools for coding agents. Configuration changes on disk are picked up
without restarting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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

		server := mcp.NewServer(cfg, database, logger.ComponentLogger("mcp"))

		// Hot-reload config while serving; a missing overrides file
		// just means there is nothing to watch yet
		if watcher, werr := config.NewConfigWatcher(config.GetOverridesPath()); werr == nil {
			watcher.OnReload(func(newCfg *config.Config) error {
				server.SetConfig(newCfg)
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		} else {
			logger.Debugw("Config hot-reload disabled", "error", werr)
		}

		return server.Serve()
	},
}
