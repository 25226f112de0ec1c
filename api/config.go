// Package api provides the HTTP API for querying and ingesting documents.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielpid/dynamic-rag/pkg/handler"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// Counter reports how many records are stored. vector.Store satisfies it.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Config is the API server configuration. Routes whose backend is nil are
// not registered.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Answerer serves POST /v1/query.
	Answerer handler.Answerer

	// Runner serves synchronous POST /v1/ingest.
	Runner ingest.Runner

	// Queue serves POST /v1/ingest?async=true and GET /v1/ingest/:id.
	Queue *ingest.Queue

	// Source is the default ingestion source.
	Source loader.Ref

	// Counter serves GET /v1/stats.
	Counter Counter

	// MCP is mounted at /mcp.
	MCP http.Handler

	Logger *slog.Logger
}
