package reporter

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/citizensadvice/cdk-changeset-reporter/pkg/assembly"
)

// StackIdentity pins a selected stack to its environment and lookup role.
// The RoleARN may still contain environment placeholders; they are resolved
// when the stack's client is built.
type StackIdentity struct {
	Name        string
	Environment assembly.Environment
	RoleARN     string
}

// RecreationRequirement mirrors the CloudFormation RequiresRecreation values,
// plus "No" for changes that carry no detail records.
type RecreationRequirement string

const (
	RecreationNo            RecreationRequirement = "No"
	RecreationNever         RecreationRequirement = "Never"
	RecreationConditionally RecreationRequirement = "Conditionally"
	RecreationAlways        RecreationRequirement = "Always"
)

// Destructive reports whether applying the change may destroy the resource.
func (r RecreationRequirement) Destructive() bool {
	return r == RecreationConditionally || r == RecreationAlways
}

// ChangeRecord is one resource-level change normalized from the service
// response: action, type, id, plus target/reason/recreation from the first
// change detail when details are present.
type ChangeRecord struct {
	Action             string
	ResourceType       string
	LogicalID          string
	RequiresRecreation RecreationRequirement
	Target             string
	Reason             string
}

func newChangeRecord(change cfntypes.Change) ChangeRecord {
	rc := change.ResourceChange
	if rc == nil {
		return ChangeRecord{RequiresRecreation: RecreationNo}
	}

	rec := ChangeRecord{
		Action:             string(rc.Action),
		ResourceType:       aws.ToString(rc.ResourceType),
		LogicalID:          aws.ToString(rc.LogicalResourceId),
		RequiresRecreation: RecreationNo,
	}
	if len(rc.Details) > 0 {
		detail := rc.Details[0]
		rec.Reason = string(detail.ChangeSource)
		if detail.Target != nil {
			rec.Target = aws.ToString(detail.Target.Name)
			rec.RequiresRecreation = RecreationRequirement(detail.Target.RequiresRecreation)
		}
	}
	return rec
}

// NormalizeChanges converts raw CloudFormation changes into ChangeRecords.
func NormalizeChanges(changes []cfntypes.Change) []ChangeRecord {
	records := make([]ChangeRecord, 0, len(changes))
	for _, c := range changes {
		records = append(records, newChangeRecord(c))
	}
	return records
}
