// Package servecmder provides the serve command, which runs the HTTP API,
// the asynchronous ingestion queue and the MCP server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielpid/dynamic-rag/api"
	"github.com/danielpid/dynamic-rag/api/mcp"
	"github.com/danielpid/dynamic-rag/pkg/components"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/dotdir"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/logger"
)

type ServeCommander struct {
	flags config.FlagSet

	listen              string
	sourceProvider      string
	bucket              string
	key                 string
	databaseProvider    string
	databaseTarget      string
	embeddingProvider   string
	embeddingTarget     string
	llmProvider         string
	llmTarget           string
	eventStreamProvider string

	configDir string
	logJSON   bool
	debug     bool
	logger    *slog.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagSourceProvider,
	config.FlagBucket,
	config.FlagKey,
	config.FlagDatabaseProv,
	config.FlagDatabaseTarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagEventStreamProv,
}

const serveLongDesc string = `Run the dynrag HTTP API.

Routes:
  GET  /ping              Health check
  POST /v1/query          Answer {"question": "..."}
  POST /v1/ingest         Ingest the configured source (?async=true queues it)
  GET  /v1/ingest/:id     State of a queued ingestion
  GET  /v1/stats          Number of stored chunks
  /mcp                    MCP streamable HTTP endpoint (tools: ask, search)

Logs go to stderr and, when a .dynrag/ directory exists, to serve.log in it.`

const serveShortDesc string = "Run the dynrag API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.Load(cmd, cmder.configDir, serveFlags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSourceProvider, &cmder.sourceProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBucket, &cmder.bucket)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKey, &cmder.key)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseProv, &cmder.databaseProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagDatabaseTarget, &cmder.databaseTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStreamProv, &cmder.eventStreamProvider)

	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write JSON logs to stderr")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, cfg *config.Config) error {
	var closeLog func() error
	c.logger, closeLog = c.newLogger()
	defer closeLog()

	comps, err := components.New(ctx, cfg, components.Options{
		Ingest: true,
		Query:  true,
		Logger: c.logger,
	})
	if err != nil {
		return err
	}
	defer comps.Close()

	queue, err := ingest.NewQueue(&ingest.QueueConfig{
		Runner:     comps.Ingest,
		NumWorkers: cfg.API.Workers,
		QueueSize:  cfg.API.QueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingest queue: %w", err)
	}
	defer queue.Close()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: comps.Retrieve,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Answerer:   comps.Retrieve,
		Runner:     comps.Ingest,
		Queue:      queue,
		Source:     components.SourceRef(cfg),
		Counter:    comps.Store,
		MCP:        mcpServer.Handler(),
		Logger:     c.logger,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return server.Shutdown()
	}
}

// newLogger logs to stderr and, when a .dynrag/ directory resolves, also as
// JSON to serve.log inside it.
func (c *ServeCommander) newLogger() (*slog.Logger, func() error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.logJSON),
		logger.WithJSON(c.logJSON),
		logger.WithWriter(os.Stderr),
	)
	noop := func() error { return nil }

	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil || dir == "" {
		return console, noop
	}

	f, err := os.OpenFile(filepath.Join(dir, "serve.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		console.Warn("could not open serve.log", "error", err)
		return console, noop
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithService("dynrag-serve"),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close
}
