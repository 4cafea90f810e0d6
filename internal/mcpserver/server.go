// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes faf tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/project"
)

// ContextURI is the resource URI of the structured file.
const ContextURI = "faf://context"

// FormatURI is the resource URI of the format contract.
const FormatURI = "faf://format"

// Server wraps the MCP server with faf tools.
type Server struct {
	mcp *server.MCPServer
	svc *project.Service
}

// New creates a new MCP server with all faf tools registered.
func New(svc *project.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"faf",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("faf_score",
		mcp.WithDescription("Score the project's .faf context file: 21 slots, percentage, "+
			"confidence and the most useful slots to fill next."),
		mcp.WithBoolean("details", mcp.Description("Include the per-section breakdown")),
	), s.score)

	s.mcp.AddTool(mcp.NewTool("faf_context",
		mcp.WithDescription("Read the project's .faf context file as YAML."),
	), s.readContext)

	s.mcp.AddTool(mcp.NewTool("faf_sync",
		mcp.WithDescription("Synchronise the .faf file with its CLAUDE.md mirror. "+
			"The newer or changed side wins; custom Markdown content is preserved."),
		mcp.WithBoolean("dry_run", mcp.Description("Only report what would change")),
	), s.sync)

	s.mcp.AddTool(mcp.NewTool("faf_readable",
		mcp.WithDescription("Render the CLAUDE.md mirror from the .faf file without writing it."),
	), s.readable)

	s.mcp.AddTool(mcp.NewTool("faf_validate",
		mcp.WithDescription("Validate the .faf file and list issues by field path."),
	), s.validate)

	s.mcp.AddTool(mcp.NewTool("faf_format",
		mcp.WithDescription("Returns the .faf format contract. "+
			"Call this before editing the context file to keep its structure."),
	), s.format)

	s.mcp.AddResource(
		mcp.NewResource(ContextURI, "Project context",
			mcp.WithResourceDescription("The project's structured .faf context file."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readContextResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Format contract",
			mcp.WithResourceDescription("Slots and conventions of the .faf format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("no .faf file found; run `faf init` first")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) score(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Score(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if !req.GetBool("details", false) {
		res.Sections = nil
	}
	return jsonResult(res), nil
}

func (s *Server) readContext(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := s.svc.Context(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) sync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.svc.Sync(ctx, req.GetBool("dry_run", false))
	if !res.Success {
		return mcp.NewToolResultError("sync failed: " + res.Error), nil
	}
	return jsonResult(res), nil
}

func (s *Server) readable(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := s.svc.Readable(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) validate(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.svc.Validate(ctx)
	if err == nil {
		return mcp.NewToolResultText("valid"), nil
	}
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		return toolError(err), nil
	}
	lines := make([]string, len(ve.Issues))
	for i, is := range ve.Issues {
		lines[i] = is.String()
	}
	return mcp.NewToolResultError(strings.Join(lines, "\n")), nil
}

func (s *Server) format(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readContextResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	detail, err := s.svc.Context(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContextURI,
			MIMEType: "application/yaml",
			Text:     detail.Content,
		},
	}, nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
