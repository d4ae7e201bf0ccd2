// Package awsauth builds delegated AWS configurations for per-stack lookup roles.
package awsauth

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/citizensadvice/cdk-changeset-reporter/pkg/assembly"
)

// defaultPartition substitutes ${AWS::Partition}. Cloud assemblies do not
// record the partition, so the public AWS partition is assumed.
const defaultPartition = "aws"

// ResolveRoleARN substitutes the CloudFormation environment placeholders in a
// role ARN with the stack's actual environment values. The recognized set is
// ${AWS::Partition}, ${AWS::AccountId} and ${AWS::Region}; anything else
// passes through unchanged.
func ResolveRoleARN(arn string, env assembly.Environment) string {
	return strings.NewReplacer(
		"${AWS::Partition}", defaultPartition,
		"${AWS::AccountId}", env.Account,
		"${AWS::Region}", env.Region,
	).Replace(arn)
}

// DelegatedConfig returns a new aws.Config scoped to region whose credentials
// come from assuming roleARN with the base identity. Credentials are lazy:
// nothing is fetched until the first API call, and the cache refreshes them
// as they near expiry. The base config is never mutated.
func DelegatedConfig(base aws.Config, roleARN, region string) aws.Config {
	cfg := base.Copy()
	cfg.Region = region
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(base), roleARN)
	cfg.Credentials = aws.NewCredentialsCache(provider)
	return cfg
}
