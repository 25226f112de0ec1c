// Package s3 implements pkg/loader's Loader for Amazon S3 and S3-compatible
// object stores.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// API is the subset of the S3 client the loader uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds configuration for the S3 loader.
type Config struct {
	// Region is the AWS region. Empty uses the default credential chain's region.
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string

	// UsePathStyle forces path-style addressing. Needed by most S3-compatible stores.
	UsePathStyle bool
}

// Loader reads documents from S3.
type Loader struct {
	api    API
	logger *slog.Logger
}

// NewLoader builds an S3 client from the default AWS configuration chain.
func NewLoader(ctx context.Context, c Config, logger *slog.Logger) (*Loader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fault.New(fault.Configuration, "s3.config", fmt.Errorf("loading aws config: %w", err))
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	})

	return New(client, logger), nil
}

// New wraps an existing S3 API client.
func New(api API, logger *slog.Logger) *Loader {
	return &Loader{api: api, logger: logger}
}

// Load yields the object named by ref, or every object under a prefix ref in
// lexical key order.
func (l *Loader) Load(ctx context.Context, ref loader.Ref) iter.Seq2[loader.Document, error] {
	return func(yield func(loader.Document, error) bool) {
		if !ref.IsPrefix() {
			doc, err := l.get(ctx, ref)
			yield(doc, err)
			return
		}

		p := s3.NewListObjectsV2Paginator(l.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(ref.Bucket),
			Prefix: aws.String(ref.Key),
		})

		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(loader.Document{}, classify("s3.list", ref, err))
				return
			}

			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}

				doc, err := l.get(ctx, loader.Ref{Bucket: ref.Bucket, Key: key})
				if !yield(doc, err) || err != nil {
					return
				}
			}
		}
	}
}

func (l *Loader) get(ctx context.Context, ref loader.Ref) (loader.Document, error) {
	out, err := l.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return loader.Document{}, classify("s3.get", ref, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return loader.Document{}, fault.New(fault.SourceUnavailable, "s3.get", fmt.Errorf("reading %s: %w", ref, err))
	}

	doc, err := loader.Decode(ref, body)
	if err != nil {
		return loader.Document{}, fault.New(fault.Internal, "s3.get", err)
	}

	l.logger.Debug("loaded object from s3",
		"bucket", ref.Bucket,
		"key", ref.Key,
		"bytes", len(body),
	)
	return doc, nil
}

func classify(op string, ref loader.Ref, err error) error {
	var (
		noKey    *types.NoSuchKey
		noBucket *types.NoSuchBucket
		notFound *types.NotFound
		apiErr   smithy.APIError
	)

	switch {
	case errors.As(err, &noKey), errors.As(err, &noBucket), errors.As(err, &notFound):
		return fault.New(fault.SourceNotFound, op, fmt.Errorf("%s: %w", ref, err))
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s %s: %w", op, ref, err)
	case errors.As(err, &apiErr) && (apiErr.ErrorCode() == "AccessDenied" || apiErr.ErrorCode() == "InvalidAccessKeyId"):
		return fault.New(fault.Configuration, op, fmt.Errorf("%s: %w", ref, err))
	default:
		return fault.New(fault.SourceUnavailable, op, fmt.Errorf("%s: %w", ref, err))
	}
}

var _ loader.Loader = (*Loader)(nil)
