package hooks

import (
	"fmt"
	"time"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/timeutil"
	"github.com/gai-dev/gai/pkg/workspace"
)

// SyncFunc synchronizes a claimed workspace directory to cs's tip, analogous
// to running "bb_hg_update <cs.name>" inside dir.
type SyncFunc func(dir, csName string) error

// ApplyDiffFunc applies a proposal's saved diff into an already-synced
// workspace directory without committing, analogous to "hg import --no-commit".
type ApplyDiffFunc func(dir, diff string) error

// LaunchFunc starts one hook's wrapper script as a detached subprocess and
// returns its PID. Callers provide this so StartSweep never touches
// processes directly in tests.
type LaunchFunc func(dir, outputPath, wrapperScript string) (pid int, err error)

// CleanFunc reverts a workspace directory to its last-committed state,
// discarding any applied-but-uncommitted diff, analogous to running
// "hg revert --all --no-backup" inside dir.
type CleanFunc func(dir string) error

// Clock supplies the current time and a way to wait, both injected so
// StartSweep's "stagger launches by >=1s" rule is testable without a real
// sleep.
type Clock struct {
	Now   func() time.Time
	Sleep func(time.Duration)
}

// StartSweep implements Phase 2 of the hook scheduler: decide which hooks
// need to run against the ChangeSpec's current COMMITS entry, claim (or
// reuse) a loop workspace for that entry, sync/apply-diff it, and launch
// every hook that still needs to run, staggering launches by at least one
// second so each gets a distinct status-line timestamp.
func StartSweep(
	gaiHome, projectFile string,
	cs changespec.ChangeSpec,
	clock Clock,
	sync SyncFunc,
	applyDiff ApplyDiffFunc,
	launch LaunchFunc,
) (changespec.ChangeSpec, error) {
	entryID, ok := CurrentEntryID(cs)
	if !ok {
		return cs, nil
	}
	_, letter := changespec.ParseCommitEntryID(entryID)
	isProposal := letter != ""

	needing := make([]int, 0, len(cs.Hooks))
	for i, h := range cs.Hooks {
		if !NeedsToRun(h, entryID) {
			continue
		}
		if isProposal && h.SkipFixHook() {
			continue // "!"-prefixed hooks never run against proposal candidates
		}
		needing = append(needing, i)
	}
	if len(needing) == 0 {
		return cs, nil
	}

	tag := WorkflowTag(entryID)
	num, dir, err := claimOrReuseWorkspace(gaiHome, projectFile, cs, tag)
	if err != nil {
		return cs, err
	}

	reused := num == 0 // claimOrReuseWorkspace returns 0 for "existing claim reused, no sync needed"
	if !reused {
		if err := sync(dir, cs.Name); err != nil {
			return cs, fmt.Errorf("hooks: sync workspace for %s: %w", tag, err)
		}
		if isProposal {
			var diff string
			for _, c := range cs.Commits {
				if c.DisplayNumber() == entryID {
					diff = c.Diff
				}
			}
			if diff != "" {
				if err := applyDiff(dir, diff); err != nil {
					return cs, fmt.Errorf("hooks: apply proposal diff for %s: %w", tag, err)
				}
			}
		}
	}

	updatedHooks := make([]changespec.HookEntry, len(cs.Hooks))
	copy(updatedHooks, cs.Hooks)
	for n, i := range needing {
		if n > 0 {
			clock.Sleep(time.Second)
		}
		now := clock.Now()
		ts := timeutil.FormatTimestamp(now)
		outputPath := OutputPath(gaiHome, cs.Name, ts)
		script := WrapperScript(updatedHooks[i].RunCommand())
		if _, err := launch(dir, outputPath, script); err != nil {
			return cs, fmt.Errorf("hooks: launch %q: %w", updatedHooks[i].DisplayCommand(), err)
		}
		updatedHooks[i].StatusLines = append(updatedHooks[i].StatusLines, changespec.HookStatusLine{
			CommitEntryNum: entryID,
			Timestamp:      ts,
			Status:         "RUNNING",
		})
	}
	cs.Hooks = updatedHooks
	return cs, nil
}

// claimOrReuseWorkspace returns a workspace number and directory for tag.
// It returns num=0 when an existing claim with the same tag and cl_name is
// reused (signalling the caller to skip re-syncing); otherwise it claims a
// fresh loop-range workspace and returns its (non-zero) number.
func claimOrReuseWorkspace(gaiHome, projectFile string, cs changespec.ChangeSpec, tag string) (num int, dir string, err error) {
	claimed, err := workspace.GetClaimed(projectFile)
	if err != nil {
		return 0, "", err
	}
	for _, c := range claimed {
		if c.Workflow == tag && c.CLName == cs.CL {
			return 0, workspace.WorkspaceDirectory(gaiHome, cs.ProjectBasename(), c.WorkspaceNum), nil
		}
	}

	for {
		n, err := workspace.FirstAvailable(projectFile, workspace.LoopRange)
		if err != nil {
			return 0, "", err
		}
		ok, err := workspace.ClaimWorkspace(projectFile, n, tag, 0, cs.CL, "")
		if err != nil {
			return 0, "", err
		}
		if ok {
			return n, workspace.WorkspaceDirectory(gaiHome, cs.ProjectBasename(), n), nil
		}
		// lost the race to another process; retry with a freshly read claim list
	}
}

// ReleaseSweep implements the release policy: once no hook in cs has a
// RUNNING status line, every loop(hooks)-* claim for cs.CL is released. A
// claim whose workflow tag names a proposal COMMITS entry is first cleaned
// of its applied-but-uncommitted diff via clean (nil disables cleaning, for
// deployments where the underlying VCS wrapper isn't configured), so a
// later reuse of the same workspace number for a different proposal never
// inherits it.
func ReleaseSweep(gaiHome, projectFile string, cs changespec.ChangeSpec, clean CleanFunc) error {
	if anyHookRunning(cs) {
		return nil
	}
	claimed, err := workspace.GetClaimed(projectFile)
	if err != nil {
		return err
	}
	for _, c := range claimed {
		if c.CLName != cs.CL || !isHooksWorkflowTag(c.Workflow) {
			continue
		}
		if clean != nil && isProposalWorkflowTag(c.Workflow) {
			dir := workspace.WorkspaceDirectory(gaiHome, cs.ProjectBasename(), c.WorkspaceNum)
			if err := clean(dir); err != nil {
				return fmt.Errorf("hooks: clean proposal workspace %s: %w", dir, err)
			}
		}
		if _, err := workspace.ReleaseWorkspace(projectFile, c.WorkspaceNum, c.Workflow); err != nil {
			return err
		}
	}
	return nil
}

func anyHookRunning(cs changespec.ChangeSpec) bool {
	for _, h := range cs.Hooks {
		for _, sl := range h.StatusLines {
			if sl.Status == "RUNNING" {
				return true
			}
		}
	}
	return false
}

func isHooksWorkflowTag(workflow string) bool {
	const prefix = "loop(hooks)-"
	return len(workflow) > len(prefix) && workflow[:len(prefix)] == prefix
}

// isProposalWorkflowTag reports whether workflow is a "loop(hooks)-*" tag
// naming a proposal COMMITS entry (e.g. "loop(hooks)-2a"), as opposed to a
// current, already-accepted entry (e.g. "loop(hooks)-2").
func isProposalWorkflowTag(workflow string) bool {
	const prefix = "loop(hooks)-"
	if !isHooksWorkflowTag(workflow) {
		return false
	}
	_, letter := changespec.ParseCommitEntryID(workflow[len(prefix):])
	return letter != ""
}
