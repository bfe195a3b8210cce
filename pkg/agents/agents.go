// Package agents implements the agent loader (C9): it aggregates every
// in-flight background run a ChangeSpec references — RUNNING claims,
// hook/mentor/comment running_agent suffixes, and workflow state files —
// into one flat, sortable, identity-addressable list.
package agents

import (
	"time"

	"github.com/gai-dev/gai/pkg/identity"
)

// Type is the tagged-union discriminant distinguishing the six kinds of
// agent this loader can produce. Each case below has its own struct, so an
// exhaustive type switch (in Kill, Dismiss, or a sort key) fails to compile
// when a new case is added without being handled.
type Type string

const (
	TypeRunning   Type = "run"
	TypeFixHook   Type = "fix-hook"
	TypeSummarize Type = "summarize"
	TypeMentor    Type = "mentor"
	TypeCrs       Type = "crs"
	TypeWorkflow  Type = "workflow"
)

// Agent is implemented by each of the six per-kind structs below. Handlers
// that need kind-specific fields type-switch on the concrete type rather
// than reading optional fields off a single fat struct.
type Agent interface {
	Kind() Type
	Base() Common
}

// Common holds the fields every agent kind carries, regardless of what
// spawned it.
type Common struct {
	CLName      string
	ProjectFile string
	Status      string
	StartTime   *time.Time // nil when the timestamp couldn't be parsed
	PID         *int       // nil while the PID-encoding window (§4.8) is open
	RawSuffix   string
}

// Identity returns the stable (type, cl_name, raw_suffix) tuple used for
// cross-refresh selection and the viewed/dismissed/revived sets.
func Identity(kind Type, c Common) identity.Identity {
	return identity.Identity{AgentType: string(kind), CLName: c.CLName, RawSuffix: c.RawSuffix}
}

// RunningAgent is a workspace-backed manual run recorded in a ProjectSpec's
// RUNNING block.
type RunningAgent struct {
	Common
	WorkspaceNum int
	Workflow     string
}

func (a RunningAgent) Kind() Type    { return TypeRunning }
func (a RunningAgent) Base() Common { return a.Common }

// FixHookAgent is a running_agent-suffixed HOOKS status line for a
// non-proposal entry: an agent fixing a failing hook.
type FixHookAgent struct {
	Common
	HookCommand    string
	CommitEntryNum string
}

func (a FixHookAgent) Kind() Type    { return TypeFixHook }
func (a FixHookAgent) Base() Common { return a.Common }

// SummarizeAgent is a running_agent-suffixed HOOKS status line for a
// proposal entry: an agent summarizing why a candidate failed.
type SummarizeAgent struct {
	Common
	HookCommand    string
	CommitEntryNum string
}

func (a SummarizeAgent) Kind() Type    { return TypeSummarize }
func (a SummarizeAgent) Base() Common { return a.Common }

// MentorAgent is a running_agent-suffixed MENTORS status line.
type MentorAgent struct {
	Common
	Profile string
	Mentor  string
}

func (a MentorAgent) Kind() Type    { return TypeMentor }
func (a MentorAgent) Base() Common { return a.Common }

// CrsAgent is a running_agent-suffixed COMMENTS entry: comment-resolution.
type CrsAgent struct {
	Common
	Reviewer string
}

func (a CrsAgent) Kind() Type    { return TypeCrs }
func (a CrsAgent) Base() Common { return a.Common }

// WorkflowStep is one step read out of a workflow_state.json file, emitted
// as a synthetic child agent when it's actively in flight.
type WorkflowStep struct {
	Name   string
	Status string // in_progress, waiting_hitl, failed, ...
}

// WorkflowAgent is a coarse-grained workflow run (summarize-hook, crs,
// fix-hook, etc. launched via pkg/supervisor) plus whichever of its steps
// are still active.
type WorkflowAgent struct {
	Common
	WorkflowName string
	Steps        []WorkflowStep
}

func (a WorkflowAgent) Kind() Type    { return TypeWorkflow }
func (a WorkflowAgent) Base() Common { return a.Common }
