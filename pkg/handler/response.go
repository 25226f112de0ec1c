// Package handler holds the transport-neutral entry points shared by the
// Lambda binaries and the HTTP API.
package handler

import (
	"encoding/json"
	"net/http"
)

// Response is a Lambda proxy style response.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
}

func headers(contentType string) map[string]string {
	return map[string]string{
		"Content-Type":                 contentType,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "OPTIONS,GET,POST",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
	}
}

// JSON builds a response with v encoded as the body.
func JSON(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers("application/json"),
			Body:       `{"error":"failed to encode response"}`,
		}
	}
	return Response{
		StatusCode: status,
		Headers:    headers("application/json"),
		Body:       string(body),
	}
}

// Text builds a plain text response.
func Text(status int, body string) Response {
	return Response{
		StatusCode: status,
		Headers:    headers("text/plain; charset=utf-8"),
		Body:       body,
	}
}
