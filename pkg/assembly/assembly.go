// Package assembly reads pre-built CDK cloud assemblies (cdk.out directories).
package assembly

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const manifestFile = "manifest.json"

// Artifact types from the cloud assembly schema.
const (
	typeStack          = "aws:cloudformation:stack"
	typeNestedAssembly = "cdk:cloud-assembly"
)

type manifest struct {
	Version   string              `json:"version"`
	Artifacts map[string]artifact `json:"artifacts"`
}

type artifact struct {
	Type        string             `json:"type"`
	Environment string             `json:"environment"`
	DisplayName string             `json:"displayName"`
	Properties  artifactProperties `json:"properties"`
}

type artifactProperties struct {
	TemplateFile  string `json:"templateFile"`
	StackName     string `json:"stackName"`
	DirectoryName string `json:"directoryName"`
	LookupRole    *struct {
		ARN string `json:"arn"`
	} `json:"lookupRole"`
}

// CloudAssembly is a loaded cloud assembly with nested assemblies flattened,
// so Stacks covers every stack reachable from the root manifest.
type CloudAssembly struct {
	dir    string
	stacks []StackArtifact
}

// Load reads the manifest in dir and every nested assembly beneath it.
func Load(dir string) (*CloudAssembly, error) {
	asm := &CloudAssembly{dir: dir}
	if err := asm.load(dir); err != nil {
		return nil, err
	}
	return asm, nil
}

func (a *CloudAssembly) load(dir string) error {
	path := filepath.Join(dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read cloud assembly manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for id, art := range m.Artifacts {
		switch art.Type {
		case typeStack:
			stack, err := newStackArtifact(id, art)
			if err != nil {
				return err
			}
			a.stacks = append(a.stacks, stack)
		case typeNestedAssembly:
			if art.Properties.DirectoryName == "" {
				return fmt.Errorf("nested assembly %s has no directory name", id)
			}
			if err := a.load(filepath.Join(dir, art.Properties.DirectoryName)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dir returns the root assembly directory.
func (a *CloudAssembly) Dir() string { return a.dir }

// Stacks returns every stack artifact in the assembly, nested assemblies
// included. Order is unspecified.
func (a *CloudAssembly) Stacks() []StackArtifact {
	out := make([]StackArtifact, len(a.stacks))
	copy(out, a.stacks)
	return out
}

func newStackArtifact(id string, art artifact) (StackArtifact, error) {
	name := art.Properties.StackName
	if name == "" {
		name = art.DisplayName
	}
	if name == "" {
		name = id
	}

	env, err := parseEnvironment(art.Environment)
	if err != nil {
		return StackArtifact{}, fmt.Errorf("stack %s: %w", name, err)
	}
	if art.Properties.LookupRole == nil || art.Properties.LookupRole.ARN == "" {
		return StackArtifact{}, fmt.Errorf("stack %s has no lookup role in the assembly manifest", name)
	}

	return StackArtifact{
		Name:          name,
		Environment:   env,
		LookupRoleARN: art.Properties.LookupRole.ARN,
		TemplateFile:  art.Properties.TemplateFile,
	}, nil
}

// parseEnvironment splits an environment URI of the form aws://<account>/<region>.
func parseEnvironment(env string) (Environment, error) {
	rest, ok := strings.CutPrefix(env, "aws://")
	if !ok {
		return Environment{}, fmt.Errorf("malformed environment %q", env)
	}
	account, region, ok := strings.Cut(rest, "/")
	if !ok || account == "" || region == "" {
		return Environment{}, fmt.Errorf("malformed environment %q", env)
	}
	return Environment{Account: account, Region: region}, nil
}
