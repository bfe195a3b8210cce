// Package supervisor implements the workflow runner (C8): launching CRS,
// fix-hook, and summarize-hook agents against a whole ChangeSpec, detecting
// their completion via an output-file sentinel, auto-accepting successful
// proposals, and killing or dismissing stuck runs.
package supervisor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/logger"
	"github.com/gai-dev/gai/pkg/suffix"
	"github.com/gai-dev/gai/pkg/timeutil"
)

var log = logger.New("gai:supervisor")

// Kind distinguishes the three workflow runners sharing this supervisor.
type Kind string

const (
	KindCRS       Kind = "crs"
	KindFixHook   Kind = "fix-hook"
	KindSummarize Kind = "summarize"
)

// LaunchOptions describes one workflow launch. AuxID disambiguates which
// work item within the ChangeSpec the workflow targets: a reviewer name for
// CRS, a hook command for fix-hook/summarize-hook. This single options
// struct replaces the two positional call shapes the original tooling used
// for ordinary vs. mentor-scoped launches.
type LaunchOptions struct {
	Kind         Kind
	ChangeSpec   string
	CL           string
	AuxID        string
	Command      string // the agent invocation to run, e.g. "gai-crs-agent"
	PromptPath   string // optional prompt file path; empty when not applicable
	WorkspaceDir string
	OutputPath   string
}

// LaunchFunc starts a workflow's runner script as a detached subprocess and
// returns its PID. Injected so Launch never touches real processes in tests.
type LaunchFunc func(opts LaunchOptions) (pid int, err error)

// RunningAgentSuffix encodes the suffix text written immediately after
// spawning a workflow: "<kind>-<pid>-<timestamp>". Before the PID is known
// (the brief window between spawn and the rewrite in step 3 of §4.8),
// PendingRunningAgentSuffix is used instead.
func RunningAgentSuffix(kind Kind, pid int, ts string) string {
	return fmt.Sprintf("%s-%d-%s", kind, pid, ts)
}

// PendingRunningAgentSuffix is written the instant before a workflow is
// spawned, before its PID is known. Readers must tolerate this PID-less
// shape since the rewrite to RunningAgentSuffix is not atomic with spawn.
func PendingRunningAgentSuffix(kind Kind, ts string) string {
	return fmt.Sprintf("%s-%s", kind, ts)
}

// Launch spawns opts' workflow and returns the running-agent suffix to
// record for the work item it targets, with the spawned PID embedded.
func Launch(opts LaunchOptions, launch LaunchFunc, now time.Time) (string, error) {
	pid, err := launch(opts)
	if err != nil {
		return "", fmt.Errorf("supervisor: launch %s workflow for %s: %w", opts.Kind, opts.AuxID, err)
	}
	ts := timeutil.FormatTimestamp(now)
	log.Printf("launched %s workflow for %s/%s as pid %d", opts.Kind, opts.ChangeSpec, opts.AuxID, pid)
	return RunningAgentSuffix(opts.Kind, pid, ts), nil
}

const completeMarkerPrefix = "===WORKFLOW_COMPLETE==="

var completionPattern = regexp.MustCompile(`===WORKFLOW_COMPLETE===\s+PROPOSAL_ID:\s+(\S+)\s+EXIT_CODE:\s+(-?\d+)`)

// Completion is a workflow's parsed terminal outcome.
type Completion struct {
	ProposalID string // empty when the workflow didn't produce a proposal
	ExitCode   int
}

// Succeeded reports whether the workflow both exited zero and produced a
// proposal to auto-accept.
func (c Completion) Succeeded() bool {
	return c.ExitCode == 0 && c.ProposalID != ""
}

// CheckCompletion scans output for the last occurrence of the
// ===WORKFLOW_COMPLETE=== sentinel. The second return is false while the
// workflow is still running.
func CheckCompletion(output string) (Completion, bool) {
	idx := strings.LastIndex(output, completeMarkerPrefix)
	if idx == -1 {
		return Completion{}, false
	}
	m := completionPattern.FindStringSubmatch(output[idx:])
	if m == nil {
		return Completion{ExitCode: 1}, true
	}
	proposalID := m[1]
	if proposalID == "None" {
		proposalID = ""
	}
	exitCode, err := strconv.Atoi(m[2])
	if err != nil {
		exitCode = 1
	}
	return Completion{ProposalID: proposalID, ExitCode: exitCode}, true
}

// ApplyDiffFunc applies a proposal's saved diff into a workspace directory
// without committing.
type ApplyDiffFunc func(workspaceDir, diff string) error

// AmendFunc amends the workspace's working commit with note as its message,
// analogous to running "bb_hg_amend <note>".
type AmendFunc func(workspaceDir, note string) error

// AutoAcceptProposal implements §4.8's success path: apply the winning
// proposal's diff, amend the commit, and retire the proposal by clearing its
// letter and suffix (the renumbering the original tooling performs for
// sibling proposals is out of scope here; see DESIGN.md).
func AutoAcceptProposal(cs changespec.ChangeSpec, proposalID string, workspaceDir string, applyDiff ApplyDiffFunc, amend AmendFunc) (changespec.ChangeSpec, error) {
	idx := -1
	for i, c := range cs.Commits {
		if c.DisplayNumber() == proposalID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return cs, fmt.Errorf("supervisor: proposal %s not found in %s", proposalID, cs.Name)
	}
	entry := cs.Commits[idx]
	if entry.Diff == "" {
		return cs, fmt.Errorf("supervisor: proposal %s has no diff", proposalID)
	}
	if err := applyDiff(workspaceDir, entry.Diff); err != nil {
		return cs, fmt.Errorf("supervisor: apply proposal %s diff: %w", proposalID, err)
	}
	if err := amend(workspaceDir, entry.Note); err != nil {
		return cs, fmt.Errorf("supervisor: amend proposal %s: %w", proposalID, err)
	}

	commits := make([]changespec.CommitEntry, len(cs.Commits))
	copy(commits, cs.Commits)
	commits[idx].ProposalLetter = ""
	commits[idx].Suffix = ""
	commits[idx].SuffixType = suffix.TypePlain
	cs.Commits = commits
	return cs, nil
}

// FailureSuffix picks the terminal error suffix §4.8 specifies for a
// workflow's failure path, distinguishing CRS (unresolved critique
// comments) from hook-driven workflows (command failure).
func FailureSuffix(kind Kind) (text string, typ suffix.Type) {
	if kind == KindCRS {
		return "Unresolved Critique Comments", suffix.TypeError
	}
	return "Hook Command Failed", suffix.TypeError
}

// KilledSuffixType is the suffix type §4.8's Kill step rewrites a work item
// to once its workflow process has been terminated.
const KilledSuffixType = suffix.TypeKilledAgent
