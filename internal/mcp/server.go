// Package mcp exposes the classifier as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/service"
)

// Server wraps an MCP server whose tools call the classifier service.
type Server struct {
	logger     *logrus.Logger
	classifier *service.ClassifierService
	feedback   feedback.Store
	mcpServer  *mcp.Server
}

// NewServer creates the MCP server and registers every tool. A nil feedback
// store leaves the feedback tools registered but failing with a clear message.
func NewServer(cfg domain.MCPConfig, logger *logrus.Logger, classifier *service.ClassifierService, store feedback.Store) *Server {
	s := &Server{
		logger:     logger,
		classifier: classifier,
		feedback:   store,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server, for custom transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, metadataClassifyVariant, s.ClassifyVariant)
	mcp.AddTool(s.mcpServer, metadataEvaluateEvidence, s.EvaluateEvidence)
	mcp.AddTool(s.mcpServer, metadataCombineEvidence, s.CombineEvidence)
	mcp.AddTool(s.mcpServer, metadataDescribeTables, s.DescribeTables)
	mcp.AddTool(s.mcpServer, metadataSubmitFeedback, s.SubmitFeedback)
	mcp.AddTool(s.mcpServer, metadataGetFeedback, s.GetFeedback)

	s.logger.WithField("tool_count", 6).Debug("Registered MCP tools")
}
