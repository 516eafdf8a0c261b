// Package mcp exposes the ape workflows as Model Context Protocol
// tools over stdio, so coding agents can describe datasets and rewrite
// templates without shelling out to the CLI.
package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/prompteng/ape/config"
	"github.com/prompteng/ape/dataset"
	"github.com/prompteng/ape/describe"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
	"github.com/prompteng/ape/version"
)

// Server wraps the ape workflows behind an MCP tool surface
type Server struct {
	mu     sync.RWMutex
	cfg    *config.Config
	db     *sql.DB
	log    *zap.SugaredLogger
	server *server.MCPServer
}

// SetConfig swaps the configuration, used for hot reload while serving
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// NewServer creates an MCP server over the given configuration. The db
// may be nil; usage tracking is skipped then.
func NewServer(cfg *config.Config, db *sql.DB, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.ComponentLogger("mcp")
	}

	s := &Server{cfg: cfg, db: db, log: log}
	s.server = server.NewMCPServer(
		"ape",
		version.Get().Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	describeTool := mcp.NewTool("ape_describe_dataset",
		mcp.WithDescription("Iteratively derive natural-language observations about a dataset file (JSONL or CSV) and summarize them"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the dataset file (.jsonl, .ndjson or .csv)"),
		),
		mcp.WithNumber("batch_size",
			mcp.Description("Examples shown per prompt (default from config)"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description("Observation calls before giving up (default from config)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Concurrent shards (default from config)"),
		),
		mcp.WithString("model",
			mcp.Description("Model override, e.g. openai/gpt-4o"),
		),
		mcp.WithString("provider",
			mcp.Description("Provider: openrouter, anthropic or auto"),
		),
	)
	s.server.AddTool(describeTool, s.handleDescribeDataset)

	reformatTool := mcp.NewTool("ape_reformat_template",
		mcp.WithDescription("Rewrite a prompt template so responses are constrained to a parseable XML or JSON contract"),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Full template text (front matter plus sections)"),
		),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Output contract: xml or json"),
		),
	)
	s.server.AddTool(reformatTool, s.handleReformatTemplate)

	parseTool := mcp.NewTool("ape_parse_template",
		mcp.WithDescription("Parse and validate a prompt template, returning its header metadata and sections"),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Full template text (front matter plus sections)"),
		),
	)
	s.server.AddTool(parseTool, s.handleParseTemplate)
}

func (s *Server) handleDescribeDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	examples, err := dataset.Load(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load dataset: %v", err)), nil
	}

	opts := describe.RunOptions{
		BatchSize:     request.GetInt("batch_size", 0),
		MaxIterations: request.GetInt("max_iterations", 0),
		Workers:       request.GetInt("workers", 0),
		Model:         request.GetString("model", ""),
		Provider:      request.GetString("provider", ""),
	}

	session, err := describe.NewConfiguredSession(s.config(), s.db, 0, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start session: %v", err)), nil
	}

	report, err := session.Run(ctx, examples)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Describe run failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleReformatTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modeStr, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode, err := prompt.ParseMode(modeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tpl, err := prompt.Parse(text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Template does not parse: %v", err)), nil
	}

	out, err := prompt.Transform(tpl, mode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Transform failed: %v", err)), nil
	}

	result, err := out.Text()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize template: %v", err)), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleParseTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tpl, err := prompt.Parse(text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Template does not parse: %v", err)), nil
	}

	summary := map[string]interface{}{
		"model":           tpl.Model,
		"description":     tpl.Description,
		"engine":          tpl.Engine,
		"inputs":          fieldList(tpl.Inputs),
		"outputs":         fieldList(tpl.Outputs),
		"response_format": string(tpl.ResponseFormat),
		"sections":        len(tpl.Sections),
	}
	if tpl.Temperature != nil {
		summary["temperature"] = *tpl.Temperature
	}
	if tpl.MaxTokens != nil {
		summary["max_tokens"] = *tpl.MaxTokens
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func fieldList(fields prompt.Fields) []map[string]string {
	out := make([]map[string]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]string{
			"name":        f.Name,
			"description": f.Description,
		})
	}
	return out
}

// Serve runs the MCP server over stdio until the client disconnects
func (s *Server) Serve() error {
	s.log.Infow("serving MCP over stdio", "tools", 3)
	return server.ServeStdio(s.server)
}
