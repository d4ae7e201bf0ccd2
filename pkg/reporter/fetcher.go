package reporter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/citizensadvice/cdk-changeset-reporter/pkg/awsauth"
)

// ChangeSetAPI is the slice of the CloudFormation API the reporter consumes.
type ChangeSetAPI interface {
	ListChangeSets(ctx context.Context, params *cloudformation.ListChangeSetsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListChangeSetsOutput, error)
	DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
}

// ClientFactory builds a CloudFormation client authorized for one stack.
type ClientFactory func(ctx context.Context, stack StackIdentity) (ChangeSetAPI, error)

// defaultClientFactory assumes the stack's lookup role from the ambient base
// identity and scopes the client to the stack's region. Each stack gets its
// own client and credentials, discarded after the stack is processed.
func defaultClientFactory(ctx context.Context, stack StackIdentity) (ChangeSetAPI, error) {
	base, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	roleARN := awsauth.ResolveRoleARN(stack.RoleARN, stack.Environment)
	cfg := awsauth.DelegatedConfig(base, roleARN, stack.Environment.Region)
	return cloudformation.NewFromConfig(cfg), nil
}

// GatherChanges queries each selected stack, sequentially, for a matching
// pending change set and returns the normalized changes keyed by stack name.
// A stack whose change set matched always gets an entry, even with zero
// changes. Failures are local to a stack: they are logged and the remaining
// stacks still run. Only context cancellation aborts the loop.
func (r *Reporter) GatherChanges(ctx context.Context) (map[string][]ChangeRecord, error) {
	changes := make(map[string][]ChangeRecord)
	for _, stack := range r.Selection() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, ok, err := r.gatherStack(ctx, stack)
		if err != nil {
			r.log.Warn("skipping stack",
				zap.String("stack", stack.Name),
				zap.String("code", apiErrorCode(err)),
				zap.Error(err))
			continue
		}
		if !ok {
			r.log.Debug("no matching change set", zap.String("stack", stack.Name))
			continue
		}
		changes[stack.Name] = records
	}
	if len(changes) == 0 {
		r.log.Warn("no pending change sets found for the selected stacks")
	}
	return changes, nil
}

func (r *Reporter) gatherStack(ctx context.Context, stack StackIdentity) ([]ChangeRecord, bool, error) {
	cfn, err := r.newClient(ctx, stack)
	if err != nil {
		return nil, false, err
	}

	list, err := cfn.ListChangeSets(ctx, &cloudformation.ListChangeSetsInput{
		StackName: aws.String(stack.Name),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list change sets: %w", err)
	}

	summary, ok := r.matchChangeSet(list.Summaries)
	if !ok {
		return nil, false, nil
	}

	desc, err := cfn.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(stack.Name),
		ChangeSetName: summary.ChangeSetName,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to describe change set %s: %w",
			aws.ToString(summary.ChangeSetName), err)
	}
	return NormalizeChanges(desc.Changes), true, nil
}

// matchChangeSet picks the configured change set by name, or the first one
// ready to execute when no name is configured.
func (r *Reporter) matchChangeSet(summaries []cfntypes.ChangeSetSummary) (cfntypes.ChangeSetSummary, bool) {
	for _, s := range summaries {
		if r.changeSetName != "" {
			if aws.ToString(s.ChangeSetName) == r.changeSetName {
				return s, true
			}
			continue
		}
		if s.ExecutionStatus == cfntypes.ExecutionStatusAvailable {
			return s, true
		}
	}
	return cfntypes.ChangeSetSummary{}, false
}

// apiErrorCode extracts the service error code for log context, if any.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
