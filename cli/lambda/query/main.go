// Command query is the AWS Lambda entry point that answers the question in
// an API Gateway proxy event. Configuration comes from DYNRAG_* environment
// variables.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/danielpid/dynamic-rag/pkg/components"
	"github.com/danielpid/dynamic-rag/pkg/config"
	"github.com/danielpid/dynamic-rag/pkg/handler"
	"github.com/danielpid/dynamic-rag/pkg/logger"
)

func main() {
	log := logger.New(
		logger.WithJSON(true),
		logger.WithLevel(os.Getenv("DYNRAG_LOG_LEVEL")),
		logger.WithService("lambda-query"),
	)

	v, err := config.InitViper("")
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}

	comps, err := components.New(context.Background(), cfg, components.Options{Query: true, Logger: log})
	if err != nil {
		log.Error("building components", "error", err)
		os.Exit(1)
	}
	defer comps.Close()

	h := handler.NewQueryHandler(comps.Retrieve, log)

	lambda.Start(func(ctx context.Context, event json.RawMessage) (handler.Response, error) {
		return h.Handle(ctx, event), nil
	})
}
