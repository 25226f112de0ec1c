package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
)

// Answerer answers questions. *retrieve.Pipeline satisfies it.
type Answerer interface {
	Answer(ctx context.Context, question string) (*retrieve.Answer, error)
}

// QueryHandler answers the question carried by an event.
type QueryHandler struct {
	answerer Answerer
	logger   *slog.Logger
}

// NewQueryHandler returns a handler backed by answerer.
func NewQueryHandler(answerer Answerer, logger *slog.Logger) *QueryHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QueryHandler{answerer: answerer, logger: logger}
}

type queryResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Handle answers the question in event. The question is read from a
// top-level "question" field, or from "body" given either as a JSON string or
// as an object.
func (h *QueryHandler) Handle(ctx context.Context, event json.RawMessage) Response {
	question := QuestionFromEvent(event)
	if strings.TrimSpace(question) == "" {
		return JSON(http.StatusBadRequest, map[string]string{"error": retrieve.NoQuestionMessage})
	}

	answer, err := h.answerer.Answer(ctx, question)
	if err != nil {
		return h.failure(err)
	}

	return JSON(http.StatusOK, queryResponse{
		Question: answer.Question,
		Answer:   answer.Answer,
	})
}

func (h *QueryHandler) failure(err error) Response {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.Kind == fault.Validation {
		return JSON(http.StatusBadRequest, map[string]string{"message": fe.Message})
	}

	h.logger.Error("query handler failed", "error", err)
	return JSON(fault.HTTPStatus(fault.KindOf(err)), map[string]string{"error": retrieve.ErrorMessage})
}

// QuestionFromEvent extracts the question from a query event. It returns ""
// when none can be found.
func QuestionFromEvent(event json.RawMessage) string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(event, &top); err != nil {
		return ""
	}

	if raw, ok := top["question"]; ok {
		return stringField(raw)
	}

	raw, ok := top["body"]
	if !ok {
		return ""
	}

	// API Gateway delivers the body as a JSON encoded string.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return stringField(body["question"])
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
