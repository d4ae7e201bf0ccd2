package reporter

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "short", in: "Bucket"},
		{name: "exactly at limit", in: strings.Repeat("a", 50)},
		{name: "one over", in: strings.Repeat("a", 51)},
		{name: "long", in: "VeryLongLogicalIdThatExceedsFiftyCharactersInTotalLength123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateMiddle(tt.in, maxLogicalIDLength)

			assert.LessOrEqual(t, len(got), maxLogicalIDLength)
			assert.LessOrEqual(t, len(got), len(tt.in))
			if len(tt.in) <= maxLogicalIDLength {
				assert.Equal(t, tt.in, got)
				return
			}
			assert.Contains(t, got, ellipsisMarker)
			assert.True(t, strings.HasPrefix(tt.in, got[:23]), "head must be preserved")
			assert.True(t, strings.HasSuffix(tt.in, got[len(got)-22:]), "tail must be preserved")
		})
	}
}

func TestGenerateTable_SortsByActionStably(t *testing.T) {
	records := []ChangeRecord{
		{Action: "Remove", LogicalID: "R1", RequiresRecreation: RecreationNo},
		{Action: "Add", LogicalID: "A1", RequiresRecreation: RecreationNo},
		{Action: "Modify", LogicalID: "M1", RequiresRecreation: RecreationNo},
		{Action: "Add", LogicalID: "A2", RequiresRecreation: RecreationNo},
	}

	table := GenerateTable("demo", records)

	order := []string{"A1", "A2", "M1", "R1"}
	last := -1
	for _, id := range order {
		idx := strings.Index(table, id)
		require.NotEqual(t, -1, idx, "missing row for %s", id)
		assert.Greater(t, idx, last, "%s out of order", id)
		last = idx
	}
}

func TestGenerateTable_RecreationFlag(t *testing.T) {
	records := []ChangeRecord{
		{Action: "Modify", LogicalID: "Db", RequiresRecreation: RecreationConditionally},
		{Action: "Modify", LogicalID: "Queue", RequiresRecreation: RecreationNever},
	}

	table := GenerateTable("demo", records)

	assert.Contains(t, table, "🚨 resources require recreation 🚨")
	assert.Contains(t, table, "**⚠️ Conditionally**")
	assert.NotContains(t, table, "**⚠️ Never**")
}

func TestGenerateTable_NoRecreation(t *testing.T) {
	records := []ChangeRecord{
		{Action: "Add", LogicalID: "Bucket", RequiresRecreation: RecreationNo},
		{Action: "Modify", LogicalID: "Queue", RequiresRecreation: RecreationNever},
	}

	table := GenerateTable("demo", records)

	assert.NotContains(t, table, "🚨")
	assert.NotContains(t, table, "⚠️")
}

func TestGenerateTable_EmptyChanges(t *testing.T) {
	table := GenerateTable("demo", nil)

	assert.Contains(t, table, "<details>")
	assert.Contains(t, table, "Changeset for stack <strong>demo</strong>")
	assert.Contains(t, table, "| Action |")
	assert.NotContains(t, table, "🚨")
}

func TestGenerateTable_EndToEnd(t *testing.T) {
	longID := "VeryLongLogicalIdThatExceedsFiftyCharactersInTotalLength123456"
	raw := []cfntypes.Change{
		{ResourceChange: &cfntypes.ResourceChange{
			Action:            cfntypes.ChangeActionAdd,
			ResourceType:      aws.String("AWS::S3::Bucket"),
			LogicalResourceId: aws.String(longID),
		}},
		{ResourceChange: &cfntypes.ResourceChange{
			Action:            cfntypes.ChangeActionRemove,
			ResourceType:      aws.String("AWS::IAM::Role"),
			LogicalResourceId: aws.String("Role1"),
			Details: []cfntypes.ResourceChangeDetail{{
				Target: &cfntypes.ResourceTargetDefinition{
					Name:               aws.String("Policy"),
					RequiresRecreation: cfntypes.RequiresRecreationAlways,
				},
				ChangeSource: cfntypes.ChangeSourceDirectModification,
			}},
		}},
	}

	records := NormalizeChanges(raw)
	require.Len(t, records, 2)
	assert.Equal(t, RecreationNo, records[0].RequiresRecreation)
	assert.Equal(t, "Policy", records[1].Target)
	assert.Equal(t, "DirectModification", records[1].Reason)

	table := GenerateTable("demo", records)

	// Add sorts before Remove.
	addIdx := strings.Index(table, "| Add ")
	removeIdx := strings.Index(table, "| Remove ")
	require.NotEqual(t, -1, addIdx)
	require.NotEqual(t, -1, removeIdx)
	assert.Less(t, addIdx, removeIdx)

	// The long id is collapsed in the middle, both ends visible.
	truncated := truncateMiddle(longID, maxLogicalIDLength)
	assert.NotContains(t, table, longID)
	assert.Contains(t, table, truncated)
	assert.LessOrEqual(t, len(truncated), 50)

	assert.Contains(t, table, "**⚠️ Always**")
	assert.Contains(t, table, "🚨 resources require recreation 🚨")
}

func TestNormalizeChanges_NoDetails(t *testing.T) {
	records := NormalizeChanges([]cfntypes.Change{
		{ResourceChange: &cfntypes.ResourceChange{
			Action:            cfntypes.ChangeActionModify,
			ResourceType:      aws.String("AWS::SQS::Queue"),
			LogicalResourceId: aws.String("Queue"),
		}},
	})

	require.Len(t, records, 1)
	assert.Equal(t, RecreationNo, records[0].RequiresRecreation)
	assert.Empty(t, records[0].Target)
	assert.Empty(t, records[0].Reason)
}

func TestReport_SortedByStackName(t *testing.T) {
	asm := loadTestAssembly(t, testStack{name: "any"})
	r := New(asm, Options{})

	var out strings.Builder
	err := r.Report(&out, map[string][]ChangeRecord{
		"zeta":  {{Action: "Add", LogicalID: "Z", RequiresRecreation: RecreationNo}},
		"alpha": {{Action: "Add", LogicalID: "A", RequiresRecreation: RecreationNo}},
	})
	require.NoError(t, err)

	report := out.String()
	assert.Less(t, strings.Index(report, "alpha"), strings.Index(report, "zeta"))
}
