package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/retrieve"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question using only the ingested documents. Returns the answer and the passages it was grounded on."

	searchToolName    = "search"
	searchDescription = "Return the stored passages most similar to the query text without generating an answer."
)

// AskInput is the input of the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested documents"`
}

// AskOutput is the output of the ask tool.
type AskOutput struct {
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Sources  []retrieve.Source `json:"sources"`
}

// SearchInput is the input of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar passages for"`
}

// SearchOutput is the output of the search tool.
type SearchOutput struct {
	Query   string            `json:"query"`
	Results []retrieve.Source `json:"results"`
	Count   int               `json:"count"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	s.config.Logger.Debug("MCP ask request", "question", input.Question)

	answer, err := s.config.Retriever.Answer(ctx, input.Question)
	if err != nil {
		return s.toolError(err), AskOutput{}, nil
	}

	output := AskOutput{
		Question: answer.Question,
		Answer:   answer.Answer,
		Sources:  answer.Sources,
	}
	return s.toolResult(output), output, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	s.config.Logger.Debug("MCP search request", "query", input.Query)

	results, err := s.config.Retriever.Search(ctx, input.Query)
	if err != nil {
		return s.toolError(err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: retrieve.Sources(results),
		Count:   len(results),
	}
	return s.toolResult(output), output, nil
}

// toolResult also serializes the structured output into a text block for
// clients that ignore structured content.
func (s *Server) toolResult(output any) *mcp.CallToolResult {
	b, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return errorResult(retrieve.ErrorMessage)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// toolError returns validation messages verbatim and hides everything else.
func (s *Server) toolError(err error) *mcp.CallToolResult {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.Kind == fault.Validation {
		return errorResult(fe.Message)
	}
	s.config.Logger.Error("MCP tool failed", "error", err)
	return errorResult(retrieve.ErrorMessage)
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
