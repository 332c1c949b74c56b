// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/packlint/core"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the packlint MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, deps core.Dependencies) *server.MCPServer {
	s := server.NewMCPServer(
		"Packlint Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		deps:    deps,
	}

	// --- 1. Tool: list_packages ---
	s.AddTool(mcp.NewTool("list_packages",
		mcp.WithDescription("List the integration and script packages of the content repository."),
		mcp.WithString("mode", mcp.Description("Which packages to list: every package or only those touched in git. Defaults to 'all'."), mcp.Enum("all", "git")),
		mcp.WithString("work_dir", mcp.Description("Directory inside the content repository (defaults to the server's working directory).")),
	), h.handleListPackages)

	// --- 2. Tool: lint_packages ---
	s.AddTool(mcp.NewTool("lint_packages",
		mcp.WithDescription("Run the lint and test battery over packages and return the aggregate report as JSON."),
		mcp.WithString("paths", mcp.Description("Comma-separated package directories."), mcp.Required()),
		mcp.WithBoolean("no_tests", mcp.Description("Skip unit tests.")),
		mcp.WithNumber("workers", mcp.Description("Number of packages linted concurrently.")),
	), h.handleLintPackages)

	// --- 3. Tool: last_report ---
	s.AddTool(mcp.NewTool("last_report",
		mcp.WithDescription("Summarize the most recent lint run recorded in the run history."),
	), h.handleLastReport)

	return s
}

// StartMCPServer starts the packlint MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, deps core.Dependencies) error {
	s := NewMCPServer(baseCfg, mgr, deps)
	return server.ServeStdio(s)
}
