// Package awssm implements pkg/secrets' Provider with AWS Secrets Manager.
package awssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/secrets"
)

// API is the subset of the Secrets Manager client the provider uses.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider reads secrets from AWS Secrets Manager.
type Provider struct {
	api API
}

// NewProvider builds a client from the default AWS configuration chain.
func NewProvider(ctx context.Context, region string) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fault.New(fault.Configuration, "awssm.config", fmt.Errorf("loading aws config: %w", err))
	}
	return New(secretsmanager.NewFromConfig(cfg)), nil
}

// New wraps an existing Secrets Manager client.
func New(api API) *Provider {
	return &Provider{api: api}
}

// GetSecret implements secrets.Provider. Only string secrets are supported.
func (p *Provider) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fault.New(fault.Configuration, "awssm.get", fmt.Errorf("%w: %s: %w", secrets.ErrSecretNotFound, name, err))
		}
		return nil, fmt.Errorf("awssm.get %s: %w", name, err)
	}

	if out.SecretString == nil {
		return nil, fault.Newf(fault.Configuration, "awssm.get", fmt.Sprintf("secret %s has no string value", name))
	}
	return secrets.Parse(aws.ToString(out.SecretString)), nil
}

var _ secrets.Provider = (*Provider)(nil)
