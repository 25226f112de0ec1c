package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/danielpid/dynamic-rag/pkg/handler"
)

// Server is the API server for the question answering system
type Server struct {
	config Config
	query  *handler.QueryHandler
	ingest *handler.IngestHandler
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// Backends are injected so the CLI and the API binary can share them.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	if config.Answerer != nil {
		s.query = handler.NewQueryHandler(config.Answerer, logger)
		app.Post("/v1/query", s.handleQuery)
	}
	if config.Runner != nil {
		s.ingest = handler.NewIngestHandler(config.Runner, config.Source, logger)
		app.Post("/v1/ingest", s.handleIngest)
	}
	if config.Queue != nil {
		app.Get("/v1/ingest/:id", s.handleGetJob)
	}
	if config.Counter != nil {
		app.Get("/v1/stats", s.handleStats)
	}
	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
