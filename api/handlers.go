package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/danielpid/dynamic-rag/pkg/handler"
	"github.com/danielpid/dynamic-rag/pkg/ingest"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// ErrorResponse is the body of every API level error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestRequest optionally overrides the default source.
type IngestRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// JobResponse describes an asynchronous ingestion job.
type JobResponse struct {
	ID              string `json:"id"`
	Source          string `json:"source"`
	State           string `json:"state"`
	Documents       int    `json:"documents,omitempty"`
	Chunks          int    `json:"chunks,omitempty"`
	RecordsIngested int    `json:"records_ingested,omitempty"`
	Error           string `json:"error,omitempty"`
}

// StatsResponse contains statistics about the vector store.
type StatsResponse struct {
	Records int `json:"records"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleQuery answers the question in the request body.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	return send(c, s.query.Handle(c.Context(), body))
}

// handleIngest ingests the default source, or the one given in the body or
// query string. With ?async=true the run is queued and 202 is returned.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	ref, err := s.ingestRef(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid ingest request"})
	}

	if !c.QueryBool("async") {
		return send(c, s.ingest.HandleRef(c.Context(), ref))
	}

	if s.config.Queue == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: "asynchronous ingestion is not enabled"})
	}

	job, ok := s.config.Queue.Enqueue(ref)
	if !ok {
		s.logger.Warn("ingest queue full, rejecting job", "source", ref.String())
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "ingest queue is full"})
	}

	return c.Status(fiber.StatusAccepted).JSON(jobResponse(job))
}

// handleGetJob returns the state of an asynchronous ingestion job.
func (s *Server) handleGetJob(c *fiber.Ctx) error {
	job, ok := s.config.Queue.Job(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "job not found"})
	}
	return c.JSON(jobResponse(job))
}

// handleStats returns statistics about the vector store.
func (s *Server) handleStats(c *fiber.Ctx) error {
	n, err := s.config.Counter.Count(c.Context())
	if err != nil {
		s.logger.Error("failed to count records", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count records"})
	}
	return c.JSON(StatsResponse{Records: n})
}

func (s *Server) ingestRef(c *fiber.Ctx) (loader.Ref, error) {
	req := IngestRequest{
		Bucket: c.Query("bucket"),
		Key:    c.Query("key"),
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return loader.Ref{}, err
		}
	}

	ref := s.config.Source
	if req.Bucket != "" {
		ref.Bucket = req.Bucket
	}
	if req.Key != "" {
		ref.Key = req.Key
	}
	return ref, nil
}

func jobResponse(job ingest.Job) JobResponse {
	resp := JobResponse{
		ID:     job.ID,
		Source: job.Ref.String(),
		State:  string(job.State),
	}
	if job.Result != nil {
		resp.Documents = job.Result.Documents
		resp.Chunks = job.Result.Chunks
		resp.RecordsIngested = job.Result.RecordsIngested
		if job.Result.Err != nil {
			resp.Error = job.Result.Err.Error()
		}
	}
	return resp
}

// send writes a transport-neutral response.
func send(c *fiber.Ctx, resp handler.Response) error {
	for k, v := range resp.Headers {
		c.Set(k, v)
	}
	return c.Status(resp.StatusCode).SendString(resp.Body)
}
