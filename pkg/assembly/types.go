package assembly

// Environment identifies the account/region pair a stack deploys into.
type Environment struct {
	Account string
	Region  string
}

// StackArtifact describes one CloudFormation stack artifact in a cloud assembly.
type StackArtifact struct {
	Name          string
	Environment   Environment
	LookupRoleARN string
	TemplateFile  string
}
