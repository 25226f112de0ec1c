// Package mcp provides an MCP (Model Context Protocol) server exposing the
// retrieval pipeline as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpid/dynamic-rag/pkg/retrieve"
	"github.com/danielpid/dynamic-rag/pkg/utils"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

// Retriever answers and searches. *retrieve.Pipeline satisfies it.
type Retriever interface {
	Answer(ctx context.Context, question string) (*retrieve.Answer, error)
	Search(ctx context.Context, question string) ([]vector.Result, error)
}

type Config struct {
	// Retriever backs the ask and search tools
	Retriever Retriever

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and search tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "dynrag",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Retriever == nil {
			return nil, errors.New("retriever is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)
	}

	s.mcpServer = mcpServer

	// Stateless: every request gets the same server
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
