package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/adverant/nexus/labreport-worker/internal/config"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
)

const toolExtractLabTests = "extract_lab_tests"

// Server exposes lab report extraction as an MCP tool over stdio
type Server struct {
	config    *config.Config
	processor processor.Processor
	mcpServer *server.MCPServer
	logger    *logging.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, proc processor.Processor, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if proc == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}

	if logger == nil {
		logger = logging.NewLogger("mcp")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		processor: proc,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		toolExtractLabTests,
		mcp.WithDescription("Extract lab test results (name, value, unit, reference range, out-of-range flag) from a lab report image"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the lab report image (.jpg, .jpeg, .png, .bmp, .tiff, .tif, .gif, .webp)"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractLabTests)
}

func (s *Server) handleExtractLabTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := processor.ProcessFile(ctx, s.processor, path, s.config.MaxFileSize)
	if err != nil {
		s.logger.Warn("Lab report extraction failed", "path", path, "error", err)
		return mcp.NewToolResultError(marshalEnvelope(processor.ErrorEnvelope(err))), nil
	}

	s.logger.Info("Lab report extracted", "path", path, "layout", result.Layout, "tests", len(result.Tests))
	return mcp.NewToolResultText(marshalEnvelope(processor.Envelope(result.Tests))), nil
}

func marshalEnvelope(resp *processor.Response) string {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"is_success": false, "error": %q}`, err.Error())
	}
	return string(data)
}

// Run serves MCP over stdin/stdout until the client disconnects
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		s.logger.Debug("Starting lab report MCP server in stdio mode")
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
