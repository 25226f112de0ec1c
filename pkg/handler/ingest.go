package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// IngestHandler ingests a fixed document source.
type IngestHandler struct {
	runner ingest.Runner
	ref    loader.Ref
	logger *slog.Logger
}

// NewIngestHandler returns a handler that ingests ref with runner.
func NewIngestHandler(runner ingest.Runner, ref loader.Ref, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IngestHandler{runner: runner, ref: ref, logger: logger}
}

// Handle ingests the configured source.
func (h *IngestHandler) Handle(ctx context.Context) Response {
	return h.HandleRef(ctx, h.ref)
}

// HandleRef ingests ref. An empty bucket falls back to the configured one.
func (h *IngestHandler) HandleRef(ctx context.Context, ref loader.Ref) Response {
	if ref.Bucket == "" {
		ref.Bucket = h.ref.Bucket
	}

	h.logger.Info("ingestion started", "source", ref.String())

	res := h.runner.Run(ctx, ref)
	if res.Status != ingest.StateDone {
		msg := "ingestion failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return Text(http.StatusInternalServerError, msg)
	}

	name := ref.Key
	if name == "" {
		name = ref.Bucket
	}
	return Text(http.StatusOK, "Ingested "+name)
}
