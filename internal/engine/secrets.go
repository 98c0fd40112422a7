package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/weftline/weft/resources/secretsmanager"
)

// applySecret ensures the secret container exists. Values are attached by
// applySecretVersion; the container itself carries only identity.
func (run *applyRun) applySecret(ctx context.Context, name string, s secretsmanager.Secret) (Op, error) {
	client := run.engine.Client.Secrets

	out, err := client.CreateSecret(ctx, &awssm.CreateSecretInput{
		Name:        aws.String(s.Name),
		Description: optionalString(s.Description),
	})
	if err == nil {
		run.resolver.SetIdentity(name, s.Name)
		run.resolver.SetAttr(name, "Arn", aws.ToString(out.ARN))
		return OpCreated, nil
	}

	if !isAlreadyExists(err) {
		return "", fmt.Errorf("CreateSecret failed: %w", err)
	}

	desc, derr := client.DescribeSecret(ctx, &awssm.DescribeSecretInput{
		SecretId: aws.String(s.Name),
	})
	if derr != nil {
		return "", fmt.Errorf("DescribeSecret failed: %w", derr)
	}

	run.resolver.SetIdentity(name, s.Name)
	run.resolver.SetAttr(name, "Arn", aws.ToString(desc.ARN))
	return OpUnchanged, nil
}

// applySecretVersion ensures the secret's current value matches the declared
// payload. Versions are never mutated: a differing value gets a new current
// version via PutSecretValue.
func (run *applyRun) applySecretVersion(ctx context.Context, name string, sv secretsmanager.SecretVersion) (Op, error) {
	client := run.engine.Client.Secrets

	secretID, err := run.resolver.Resolve(sv.Secret)
	if err != nil {
		return "", err
	}

	current, err := client.GetSecretValue(ctx, &awssm.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	switch {
	case err == nil:
		if aws.ToString(current.SecretString) == sv.SecretString {
			run.resolver.SetIdentity(name, aws.ToString(current.VersionId))
			return OpUnchanged, nil
		}
	case !isNotFound(err):
		return "", fmt.Errorf("GetSecretValue failed: %w", err)
	}

	put, perr := client.PutSecretValue(ctx, &awssm.PutSecretValueInput{
		SecretId:     aws.String(secretID),
		SecretString: aws.String(sv.SecretString),
	})
	if perr != nil {
		return "", fmt.Errorf("PutSecretValue failed: %w", perr)
	}

	run.resolver.SetIdentity(name, aws.ToString(put.VersionId))
	if err == nil {
		return OpUpdated, nil
	}
	return OpCreated, nil
}

// optionalString returns nil for "", so empty declarations stay unset.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
