package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/config"
	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	tclog "github.com/Sriram-PR/doc-toc/pkg/log"
)

const (
	serverName    = "doc-toc"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Store      *entity.Store
	Settings   generate.Settings
	Transport  string // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
}

// Server exposes table of contents generation as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	listDocumentsTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents a table of contents can be generated for"),
	)
	s.mcpServer.AddTool(listDocumentsTool, s.handleListDocuments)

	generateToCTool := mcp.NewTool("generate_toc",
		mcp.WithDescription("Generate the table of contents of one document"),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Id of the top-level document"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default), html, markdown or tree"),
			mcp.Enum(formatJSONName, formatHTML, formatMarkdown, formatTree),
		),
		mcp.WithBoolean("is_relative",
			mcp.Description("Link to fragments on the current page instead of the document URL"),
		),
		mcp.WithString("heading_fields",
			mcp.Description("Heading fields, one 'entityType:bundle:fieldName' per line; replaces the configured list"),
		),
	)
	s.mcpServer.AddTool(generateToCTool, s.handleGenerateToC)

	renderDocumentTool := mcp.NewTool("render_document",
		mcp.WithDescription("Render a document with anchors injected and table of contents fields formatted"),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Id of the top-level document"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: html (default) or markdown"),
			mcp.Enum(formatHTML, formatMarkdown),
		),
	)
	s.mcpServer.AddTool(renderDocumentTool, s.handleRenderDocument)

	generateAllTool := mcp.NewTool("generate_all",
		mcp.WithDescription("Start background generation for every supported document. Returns immediately with a job ID."),
	)
	s.mcpServer.AddTool(generateAllTool, s.handleGenerateAll)

	getJobStatusTool := mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a generation job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by generate_all"),
		),
	)
	s.mcpServer.AddTool(getJobStatusTool, s.handleGetJobStatus)

	s.log.Infof("Registered %d MCP tools", 5)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		errLog := tclog.NewStdLogger(s.log.WithField("transport", "stdio"), logrus.ErrorLevel)
		return server.ServeStdio(s.mcpServer, server.WithErrorLogger(errLog))
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	return nil
}
