// Package engine converges live AWS state to a declared stack.
//
// The engine walks the stack's dependency graph in topological order and
// reconciles each resource: creating what is missing, updating what drifted,
// and leaving converged resources untouched, so that re-applying an already
// converged graph is a no-op.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsapi "github.com/aws/aws-sdk-go-v2/service/apigateway"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
)

// Client bundles the AWS service clients and account facts the engine needs.
type Client struct {
	Config     aws.Config
	IAM        *awsiam.Client
	Lambda     *awslambda.Client
	APIGateway *awsapi.Client
	Secrets    *awssm.Client
	STS        *awssts.Client
	Region     string
	AccountID  string
}

// Options configures client construction.
type Options struct {
	// Region overrides the default region from the environment.
	Region string
	// Profile selects a shared-config profile.
	Profile string
}

// NewClient loads AWS configuration and constructs the service clients,
// preloading the caller's account ID.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if strings.TrimSpace(opts.Region) != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if strings.TrimSpace(opts.Profile) != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := &Client{
		Config:     cfg,
		IAM:        awsiam.NewFromConfig(cfg),
		Lambda:     awslambda.NewFromConfig(cfg),
		APIGateway: awsapi.NewFromConfig(cfg),
		Secrets:    awssm.NewFromConfig(cfg),
		STS:        awssts.NewFromConfig(cfg),
		Region:     cfg.Region,
	}

	ident, err := client.STS.GetCallerIdentity(ctx, &awssts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting account ID: %w", err)
	}
	client.AccountID = aws.ToString(ident.Account)

	return client, nil
}
