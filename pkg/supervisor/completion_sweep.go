package supervisor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/suffix"
)

var unsafeWorkflowNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// safeName mirrors pkg/hooks.SafeName: both packages independently need a
// filesystem-safe token for a ChangeSpec name, one for hook output files and
// one for workflow output files.
func safeName(name string) string {
	return unsafeWorkflowNameChars.ReplaceAllString(name, "_")
}

// WorkflowOutputPath returns the sentinel output file a launched workflow
// writes to, under gaiHome/workflows, paralleling pkg/hooks.OutputPath for
// hook commands.
func WorkflowOutputPath(gaiHome, csName string, kind Kind, timestamp string) string {
	return filepath.Join(gaiHome, "workflows", fmt.Sprintf("%s_%s-%s.txt", safeName(csName), kind, timestamp))
}

// ExtractKindAndTimestamp parses a running-agent suffix of the form
// "<kind>-<pid>-<timestamp>" back into the workflow kind and embedded
// timestamp, for completion polling once only the suffix text survives in a
// parsed ChangeSpec.
func ExtractKindAndTimestamp(text string) (Kind, string, bool) {
	parts := strings.Split(text, "-")
	if len(parts) < 3 {
		return "", "", false
	}
	pidStr := parts[len(parts)-2]
	ts := parts[len(parts)-1]
	if !changespec.IsRunningProcessSuffix(pidStr) {
		return "", "", false
	}
	return Kind(strings.Join(parts[:len(parts)-2], "-")), ts, true
}

// WorkflowTag builds the workspace claim tag recorded for a launched
// workflow: "loop(crs)-<reviewer>" for CRS, "loop(fix-hook)-<ts>" for
// fix-hook. Summarize-hook workflows claim no workspace, so no tag is
// needed for them.
func WorkflowTag(kind Kind, auxID string) string {
	return fmt.Sprintf("loop(%s)-%s", kind, auxID)
}

// WorkflowRelease names a workspace claim CheckWorkflows has finished with.
// CheckWorkflows never touches pkg/workspace itself, so the caller — which
// alone knows how to translate a claim tag into an actual release — is
// responsible for acting on these.
type WorkflowRelease struct {
	Kind  Kind
	AuxID string
}

// WorkflowDeps bundles the externals CheckWorkflows needs to poll for and
// react to workflow completions, so it never touches a real filesystem,
// workspace, or VCS command directly.
type WorkflowDeps struct {
	GaiHome        string
	ReadOutputFile func(path string) (string, error)
	// WorkspaceDir resolves the workspace directory claimed for a given
	// workflow kind/auxID pairing against the current ChangeSpec's CL, or
	// false if none is claimed (e.g. already released by a prior cycle).
	WorkspaceDir func(kind Kind, auxID string) (dir string, ok bool)
	ApplyDiff    ApplyDiffFunc
	Amend        AmendFunc
}

func (d WorkflowDeps) poll(csName string, kind Kind, ts string) (Completion, bool) {
	if d.ReadOutputFile == nil {
		return Completion{}, false
	}
	content, err := d.ReadOutputFile(WorkflowOutputPath(d.GaiHome, csName, kind, ts))
	if err != nil {
		return Completion{}, false
	}
	return CheckCompletion(content)
}

func acceptInto(cs *changespec.ChangeSpec, proposalID, dir string, deps WorkflowDeps) error {
	updated, err := AutoAcceptProposal(*cs, proposalID, dir, deps.ApplyDiff, deps.Amend)
	if err != nil {
		return err
	}
	*cs = updated
	return nil
}

// CheckWorkflows implements §4.8's completion-detection and auto-accept
// steps for every CRS, fix-hook, and summarize-hook workflow currently
// recorded as running against cs: poll each one's output file and, on
// completion, either auto-accept its proposal or rewrite its work item's
// suffix to the matching terminal error. It never launches a workflow —
// deciding which work items are eligible for a new launch is the caller's
// job — and it never releases a workspace claim itself; completed work
// items are returned as WorkflowReleases for the caller to resolve.
func CheckWorkflows(cs changespec.ChangeSpec, deps WorkflowDeps) (changespec.ChangeSpec, []string, []WorkflowRelease) {
	var messages []string
	var releases []WorkflowRelease

	comments := make([]changespec.CommentEntry, len(cs.Comments))
	copy(comments, cs.Comments)
	for i, c := range comments {
		if c.SuffixType != suffix.TypeRunningAgent {
			continue
		}
		kind, ts, ok := ExtractKindAndTimestamp(c.Suffix)
		if !ok || kind != KindCRS {
			continue
		}
		completion, done := deps.poll(cs.Name, KindCRS, ts)
		if !done {
			continue
		}
		releases = append(releases, WorkflowRelease{Kind: KindCRS, AuxID: c.Reviewer})

		if completion.Succeeded() {
			var dir string
			var haveDir bool
			if deps.WorkspaceDir != nil {
				dir, haveDir = deps.WorkspaceDir(KindCRS, c.Reviewer)
			}
			if haveDir {
				if err := acceptInto(&cs, completion.ProposalID, dir, deps); err == nil {
					comments[i].Suffix, comments[i].SuffixType = "", suffix.TypePlain
					messages = append(messages, fmt.Sprintf("CRS workflow [%s] -> COMPLETED, auto-accepted (%s)", c.Reviewer, completion.ProposalID))
					continue
				} else {
					log.Printf("%s: auto-accept CRS proposal %s failed: %v", cs.Name, completion.ProposalID, err)
				}
			}
			comments[i].Suffix, comments[i].SuffixType = FailureSuffix(KindCRS)
			messages = append(messages, fmt.Sprintf("CRS workflow [%s] -> FAILED to auto-accept", c.Reviewer))
			continue
		}
		comments[i].Suffix, comments[i].SuffixType = FailureSuffix(KindCRS)
		messages = append(messages, fmt.Sprintf("CRS workflow [%s] -> FAILED (exit %d)", c.Reviewer, completion.ExitCode))
	}
	cs.Comments = comments

	hooksUpd := make([]changespec.HookEntry, len(cs.Hooks))
	copy(hooksUpd, cs.Hooks)
	for i, h := range hooksUpd {
		latest, ok := h.LatestStatusLine()
		if !ok || latest.SuffixType != suffix.TypeRunningAgent {
			continue
		}
		kind, ts, ok := ExtractKindAndTimestamp(latest.Suffix)
		if !ok || (kind != KindFixHook && kind != KindSummarize) {
			continue
		}
		completion, done := deps.poll(cs.Name, kind, ts)
		if !done {
			continue
		}
		if kind == KindFixHook {
			releases = append(releases, WorkflowRelease{Kind: kind, AuxID: ts})
		}

		updatedLines := make([]changespec.HookStatusLine, len(h.StatusLines))
		copy(updatedLines, h.StatusLines)
		for j, sl := range updatedLines {
			if sl.CommitEntryNum != latest.CommitEntryNum {
				continue
			}
			if kind == KindFixHook {
				if completion.Succeeded() {
					var dir string
					var haveDir bool
					if deps.WorkspaceDir != nil {
						dir, haveDir = deps.WorkspaceDir(kind, ts)
					}
					if haveDir {
						err := acceptInto(&cs, completion.ProposalID, dir, deps)
						if err == nil {
							updatedLines[j].Suffix, updatedLines[j].SuffixType = "", suffix.TypePlain
							messages = append(messages, fmt.Sprintf("fix-hook workflow '%s' -> COMPLETED, auto-accepted (%s)", h.DisplayCommand(), completion.ProposalID))
							continue
						}
						log.Printf("%s: auto-accept fix-hook proposal %s failed: %v", cs.Name, completion.ProposalID, err)
					}
				}
				updatedLines[j].Suffix, updatedLines[j].SuffixType = FailureSuffix(kind)
				messages = append(messages, fmt.Sprintf("fix-hook workflow '%s' -> FAILED to auto-accept", h.DisplayCommand()))
				continue
			}

			// summarize-hook: exit code alone decides; there is no proposal
			// to accept and no workspace to release.
			if completion.ExitCode == 0 {
				updatedLines[j].Suffix, updatedLines[j].SuffixType = "", suffix.TypePlain
				messages = append(messages, fmt.Sprintf("summarize-hook workflow '%s' -> COMPLETED", h.DisplayCommand()))
				continue
			}
			updatedLines[j].Suffix, updatedLines[j].SuffixType = FailureSuffix(kind)
			messages = append(messages, fmt.Sprintf("summarize-hook workflow '%s' -> FAILED (exit %d)", h.DisplayCommand(), completion.ExitCode))
		}
		hooksUpd[i].StatusLines = updatedLines
	}
	cs.Hooks = hooksUpd

	return cs, messages, releases
}
