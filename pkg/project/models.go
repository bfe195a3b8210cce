// Package project models the top-level .gp project file: the RUNNING
// workspace-claim registry plus the ordered list of ChangeSpecs it holds,
// and the pure functions that produce updated copies of that tree.
package project

import "github.com/gai-dev/gai/pkg/changespec"

// WorkspaceClaim is one entry in the RUNNING field: a numbered workspace
// slot held by a live workflow process.
type WorkspaceClaim struct {
	WorkspaceNum        int
	PID                 int
	Workflow            string
	CLName              string
	ArtifactsTimestamp  string
}

// Spec is the full parsed contents of a .gp project file.
type Spec struct {
	FilePath    string
	Bug         string
	Running     []WorkspaceClaim
	ChangeSpecs []changespec.ChangeSpec
}
