// Package validate implements the read-only queries (C11) the loop driver
// and TUI collaborator run over a parsed ChangeSpec tree: error-suffix
// detection, parent-readiness-for-mail, per-entry hook-pass checks, and the
// global running-agent/running-process counters used for status-line
// summaries.
package validate

import (
	"strings"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/sliceutil"
	"github.com/gai-dev/gai/pkg/suffix"
)

// HasAnyStatusSuffix reports whether cs has any error suffix anywhere in its
// STATUS, COMMITS, HOOKS, or COMMENTS fields, including the READY TO MAIL
// marker on STATUS. Used by the "!!!" and "!!" query shorthands.
func HasAnyStatusSuffix(cs changespec.ChangeSpec) bool {
	if strings.Contains(cs.Status, " - (!: ") {
		return true
	}
	return hasAnyErrorSuffixInHistoryHooksComments(cs)
}

// HasAnyErrorSuffix reports whether cs has any error suffix that would block
// it from being marked READY TO MAIL. Unlike HasAnyStatusSuffix, a STATUS
// already carrying the READY TO MAIL marker itself is not counted as an
// error.
func HasAnyErrorSuffix(cs changespec.ChangeSpec) bool {
	if strings.Contains(cs.Status, " - (!: ") && !changespec.HasReadyToMailSuffix(cs.Status) {
		return true
	}
	return hasAnyErrorSuffixInHistoryHooksComments(cs)
}

func hasAnyErrorSuffixInHistoryHooksComments(cs changespec.ChangeSpec) bool {
	for _, entry := range cs.Commits {
		if entry.SuffixType == suffix.TypeError {
			return true
		}
	}
	for _, hook := range cs.Hooks {
		for _, sl := range hook.StatusLines {
			if sl.SuffixType == suffix.TypeError {
				return true
			}
		}
	}
	for _, comment := range cs.Comments {
		if comment.SuffixType == suffix.TypeError {
			return true
		}
	}
	return false
}

// IsParentReadyForMail reports whether cs's parent (if any) is in a status
// that allows cs to be mailed: no parent, or a parent whose base status is
// "Submitted" or "Mailed". A named parent that can't be found among all is
// treated as ready, matching the leniency of the original parent-submitted
// check.
func IsParentReadyForMail(cs changespec.ChangeSpec, all []changespec.ChangeSpec) bool {
	if cs.Parent == "" {
		return true
	}
	for _, other := range all {
		if other.Name == cs.Parent {
			base := changespec.GetBaseStatus(other.Status)
			return sliceutil.Contains([]string{"Submitted", "Mailed"}, base)
		}
	}
	return true
}

func isProposalEntryID(entryID string) bool {
	if entryID == "" {
		return false
	}
	last := entryID[len(entryID)-1]
	return last >= 'a' && last <= 'z'
}

// GetCurrentAndProposalEntryIDs returns the latest non-proposal COMMITS entry
// id, followed by every proposal entry sharing that same number. If history
// is [1, 2, 2a, 2b], it returns ["2", "2a", "2b"]; entry "1" is not included.
// Returns nil if cs has no COMMITS entries, or if every entry is a proposal.
func GetCurrentAndProposalEntryIDs(cs changespec.ChangeSpec) []string {
	if len(cs.Commits) == 0 {
		return nil
	}

	var current *changespec.CommitEntry
	for i := len(cs.Commits) - 1; i >= 0; i-- {
		if !cs.Commits[i].IsProposed() {
			current = &cs.Commits[i]
			break
		}
	}
	if current == nil {
		return nil
	}

	result := []string{current.DisplayNumber()}
	for _, entry := range cs.Commits {
		if entry.IsProposed() && entry.Number == current.Number {
			result = append(result, entry.DisplayNumber())
		}
	}
	return result
}

// AllHooksPassedForEntries reports whether every applicable hook has a
// PASSED status line for every id in entryIDs. A hook with a "$" prefix is
// not applicable to proposal entry ids. Returns true if cs has no hooks or
// entryIDs is empty.
func AllHooksPassedForEntries(cs changespec.ChangeSpec, entryIDs []string) bool {
	if len(cs.Hooks) == 0 || len(entryIDs) == 0 {
		return true
	}

	for _, hook := range cs.Hooks {
		for _, entryID := range entryIDs {
			if hook.SkipProposalRuns() && isProposalEntryID(entryID) {
				continue
			}
			sl, ok := hook.StatusLineForCommitEntry(entryID)
			if !ok || sl.Status != "PASSED" {
				return false
			}
		}
	}
	return true
}

// HasAnyRunningAgent reports whether cs has any hook or CRS comment entry
// currently carrying a running-agent suffix (a fix-hook/summarize-hook agent,
// or a running CRS agent).
func HasAnyRunningAgent(cs changespec.ChangeSpec) bool {
	for _, hook := range cs.Hooks {
		for _, sl := range hook.StatusLines {
			if sl.SuffixType == suffix.TypeRunningAgent {
				return true
			}
		}
	}
	for _, comment := range cs.Comments {
		if comment.SuffixType == suffix.TypeRunningAgent {
			return true
		}
	}
	return false
}

// HasAnyRunningProcess reports whether cs has any hook status line carrying
// a bare running-process (PID) suffix, distinct from HasAnyRunningAgent's
// timestamp-based agent suffixes.
func HasAnyRunningProcess(cs changespec.ChangeSpec) bool {
	for _, hook := range cs.Hooks {
		for _, sl := range hook.StatusLines {
			if sl.SuffixType == suffix.TypeRunningProcess {
				return true
			}
		}
	}
	return false
}

// CountRunningHooksGlobal counts hook status lines carrying a running-process
// suffix across every ChangeSpec in all.
func CountRunningHooksGlobal(all []changespec.ChangeSpec) int {
	count := 0
	for _, cs := range all {
		for _, hook := range cs.Hooks {
			for _, sl := range hook.StatusLines {
				if sl.SuffixType == suffix.TypeRunningProcess {
					count++
				}
			}
		}
	}
	return count
}

// CountRunningAgentsGlobal counts running-agent suffixes across every
// ChangeSpec in all, in both HOOKS (fix-hook, summarize-hook) and COMMENTS
// (CRS) fields.
func CountRunningAgentsGlobal(all []changespec.ChangeSpec) int {
	count := 0
	for _, cs := range all {
		for _, hook := range cs.Hooks {
			for _, sl := range hook.StatusLines {
				if sl.SuffixType == suffix.TypeRunningAgent {
					count++
				}
			}
		}
		for _, comment := range cs.Comments {
			if comment.SuffixType == suffix.TypeRunningAgent {
				count++
			}
		}
	}
	return count
}

// CountAllRunnersGlobal counts every concurrent runner across all
// ChangeSpecs: running hook processes, running hook agents, running CRS
// agents, and running mentor agents.
func CountAllRunnersGlobal(all []changespec.ChangeSpec) int {
	count := 0
	for _, cs := range all {
		for _, hook := range cs.Hooks {
			for _, sl := range hook.StatusLines {
				if sl.SuffixType == suffix.TypeRunningProcess || sl.SuffixType == suffix.TypeRunningAgent {
					count++
				}
			}
		}
		for _, comment := range cs.Comments {
			if comment.SuffixType == suffix.TypeRunningAgent {
				count++
			}
		}
		for _, mentor := range cs.Mentors {
			for _, msl := range mentor.StatusLines {
				if msl.SuffixType == suffix.TypeRunningAgent {
					count++
				}
			}
		}
	}
	return count
}
