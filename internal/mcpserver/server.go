// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gebo graph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/reactor"
	"github.com/starford/gebo/internal/storage"
	"github.com/starford/gebo/internal/validate"
)

// Server wraps the MCP server with Gebo graph tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	db      graph.Store
	orch    *validate.Orchestrator
	reactor *reactor.Reactor
}

// New creates a new MCP server with all Gebo tools registered.
func New(store storage.Provider, db graph.Store, orch *validate.Orchestrator, r *reactor.Reactor) *Server {
	s := &Server{store: store, db: db, orch: orch, reactor: r}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read a graph node: properties, links, dependencies and health."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id, i.e. the vault-relative document path (e.g. guides/index.md)")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw Markdown source of a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("graph_metrics",
		mcp.WithDescription("Aggregate graph figures: node count, edge count, orphans, average degree."),
	), s.graphMetrics)

	s.mcp.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Run the validation pipeline over the given node ids and return per-node scores and findings."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated node ids to validate")),
	), s.validateNodes)

	s.mcp.AddTool(mcp.NewTool("restore_archive",
		mcp.WithDescription("Restore the most recent archived snapshot of a deleted node and relink references to it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Original node id to restore")),
	), s.restoreArchive)

	s.mcp.AddTool(mcp.NewTool("archive_stats",
		mcp.WithDescription("Summarise the archive: row counts and oldest/newest entries."),
	), s.archiveStats)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical Gebo document format contract. "+
			"Call this before authoring vault documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("gebo://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format that all vault documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.db.GetNode(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if node == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(node, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) graphMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.db.CalculateGraphMetrics()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(m, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids must name at least one node"), nil
	}
	results := s.orch.ValidateBatch(ctx, ids)
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) restoreArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	restored, err := s.reactor.RestoreArchivedFile(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !restored {
		return mcp.NewToolResultText(fmt.Sprintf("no archive found for: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %s", id)), nil
}

func (s *Server) archiveStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.db.ArchiveStats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gebo://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
