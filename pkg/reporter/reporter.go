// Package reporter collects and renders CloudFormation changeset reports for
// the stacks in a CDK cloud assembly, using each stack's lookup role.
package reporter

import (
	"context"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/citizensadvice/cdk-changeset-reporter/pkg/assembly"
)

// SelectAll is the selector matching every stack in the assembly.
const SelectAll = "*"

// Options configure a Reporter.
type Options struct {
	// ChangeSetName, when set, restricts matching to change sets with that
	// exact name. When empty, the first change set whose execution status is
	// AVAILABLE is used.
	ChangeSetName string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// ClientFactory builds the per-stack CloudFormation client. The default
	// assumes the stack's lookup role from the ambient base identity.
	ClientFactory ClientFactory
}

// Reporter accumulates a stack selection from a cloud assembly and reports
// pending changesets for it. It holds its own selection set and
// configuration; nothing is process-global.
type Reporter struct {
	assembly      *assembly.CloudAssembly
	changeSetName string
	log           *zap.Logger
	newClient     ClientFactory
	stacks        map[StackIdentity]struct{}
}

// New builds a Reporter over a loaded cloud assembly.
func New(asm *assembly.CloudAssembly, opts Options) *Reporter {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	factory := opts.ClientFactory
	if factory == nil {
		factory = defaultClientFactory
	}
	return &Reporter{
		assembly:      asm,
		changeSetName: opts.ChangeSetName,
		log:           log,
		newClient:     factory,
		stacks:        make(map[StackIdentity]struct{}),
	}
}

// Select adds every assembly stack matching the selector to the working set.
// "*" matches all stacks; any other selector is a case-sensitive stack-name
// prefix. Repeated calls accumulate, and selecting the same stack twice is a
// no-op.
func (r *Reporter) Select(selector string) {
	matched := 0
	for _, stack := range r.assembly.Stacks() {
		if selector != SelectAll && !strings.HasPrefix(stack.Name, selector) {
			continue
		}
		matched++
		r.stacks[StackIdentity{
			Name:        stack.Name,
			Environment: stack.Environment,
			RoleARN:     stack.LookupRoleARN,
		}] = struct{}{}
	}
	if matched == 0 {
		r.log.Warn("selector matched no stacks", zap.String("selector", selector))
	}
}

// Reset clears the stack selection.
func (r *Reporter) Reset() {
	r.stacks = make(map[StackIdentity]struct{})
}

// Selection returns the current working set, sorted by stack name.
func (r *Reporter) Selection() []StackIdentity {
	out := make([]StackIdentity, 0, len(r.stacks))
	for stack := range r.stacks {
		out = append(out, stack)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GatherAndReport selects, gathers and writes the report in one call.
func (r *Reporter) GatherAndReport(ctx context.Context, w io.Writer, selectors ...string) error {
	for _, selector := range selectors {
		r.Select(selector)
	}
	changes, err := r.GatherChanges(ctx)
	if err != nil {
		return err
	}
	return r.Report(w, changes)
}
