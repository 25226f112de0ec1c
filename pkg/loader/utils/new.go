// Package loaderutils builds a loader.Loader from configuration.
package loaderutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielpid/dynamic-rag/pkg/loader"
	"github.com/danielpid/dynamic-rag/pkg/loader/file"
	"github.com/danielpid/dynamic-rag/pkg/loader/s3"
)

type NewLoaderOpts struct {
	// ProviderType is "s3" or "file".
	ProviderType string

	// Region and Endpoint configure the S3 client.
	Region   string
	Endpoint string

	// Root is the directory buckets live under for the file provider.
	Root string

	Logger *slog.Logger
}

func NewLoader(ctx context.Context, o *NewLoaderOpts) (loader.Loader, error) {
	switch o.ProviderType {
	case "s3":
		return s3.NewLoader(ctx, s3.Config{
			Region:       o.Region,
			Endpoint:     o.Endpoint,
			UsePathStyle: o.Endpoint != "",
		}, o.Logger)
	case "file", "local":
		return file.NewLoader(o.Root, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported document source provider: %s", o.ProviderType)
	}
}
