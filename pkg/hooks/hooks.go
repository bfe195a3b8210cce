// Package hooks implements the hook scheduler (C7): the completion, zombie,
// and stale-fix-hook sweeps that reconcile HookStatusLine state against the
// hook subprocesses' output files, and the start sweep that launches hooks
// against a ChangeSpec's current COMMITS entry.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/logger"
	"github.com/gai-dev/gai/pkg/suffix"
	"github.com/gai-dev/gai/pkg/timeutil"
)

var log = logger.New("gai:hooks")

// maxConcurrentSentinelScans bounds how many RUNNING hook output files a
// single CompletionSweep reads and scans at once.
const maxConcurrentSentinelScans = 8

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SafeName converts a ChangeSpec name into the filesystem-safe token used to
// build hook and workflow output file names.
func SafeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// OutputPath returns the hook output file path for a given ChangeSpec name
// and status-line timestamp, under gaiHome/hooks.
func OutputPath(gaiHome, csName, timestamp string) string {
	return filepath.Join(gaiHome, "hooks", fmt.Sprintf("%s_%s.txt", SafeName(csName), timestamp))
}

// WrapperScript renders the shell script a hook subprocess actually runs:
// it echoes a banner, runs command, and emits the completion sentinel with
// the exit code and an America/New_York end timestamp.
func WrapperScript(command string) string {
	return "echo \"=== HOOK COMMAND ===\"\n" +
		"echo \"" + command + "\"\n" +
		"echo \"====================\"\n" +
		command + " 2>&1\n" +
		"exit_code=$?\n" +
		"end_timestamp=$(TZ=\"America/New_York\" date +\"%y%m%d%H%M%S\")\n" +
		"echo \"===HOOK_COMPLETE=== END_TIMESTAMP: $end_timestamp EXIT_CODE: $exit_code\"\n" +
		"exit $exit_code\n"
}

var (
	sentinelPattern       = regexp.MustCompile(`===HOOK_COMPLETE===\s+END_TIMESTAMP:\s+(\S+)\s+EXIT_CODE:\s+(-?\d+)`)
	legacySentinelPattern = regexp.MustCompile(`===HOOK_COMPLETE===\s+EXIT_CODE:\s+(-?\d+)`)
)

// Completion is the outcome scanned out of a hook's output file.
type Completion struct {
	EndTimestamp string // empty when only the legacy sentinel form matched
	ExitCode     int
}

// ScanCompletion scans a hook output file's contents for the completion
// sentinel, preferring the timestamped form over the legacy one. The second
// return value is false while the hook is still running (no sentinel yet).
func ScanCompletion(output string) (Completion, bool) {
	if m := sentinelPattern.FindStringSubmatch(output); m != nil {
		code, _ := strconv.Atoi(m[2])
		return Completion{EndTimestamp: m[1], ExitCode: code}, true
	}
	if m := legacySentinelPattern.FindStringSubmatch(output); m != nil {
		code, _ := strconv.Atoi(m[1])
		return Completion{ExitCode: code}, true
	}
	return Completion{}, false
}

// CompletionSweep implements Phase 1's completion sweep for a single hook:
// for every RUNNING status line, read its output file and, if the
// completion sentinel is present, replace the line with a terminal PASSED
// or FAILED line. readFile is injected so the sweep is testable without
// touching the filesystem.
func CompletionSweep(gaiHome, csName string, h changespec.HookEntry, readFile func(path string) (string, error)) changespec.HookEntry {
	updated := make([]changespec.HookStatusLine, len(h.StatusLines))
	copy(updated, h.StatusLines)

	p := pool.New().WithMaxGoroutines(maxConcurrentSentinelScans)
	for i, sl := range h.StatusLines {
		if sl.Status != "RUNNING" {
			continue
		}
		i, sl := i, sl
		p.Go(func() {
			if scanned, ok := scanSentinelFile(gaiHome, csName, sl, readFile); ok {
				updated[i] = scanned
			}
		})
	}
	p.Wait()

	h.StatusLines = updated
	return h
}

// scanSentinelFile reads sl's hook output file and, if it carries a
// completion sentinel, returns sl updated with the resulting status and
// duration. ok is false when the hook is still running or its output file
// isn't there yet.
func scanSentinelFile(gaiHome, csName string, sl changespec.HookStatusLine, readFile func(path string) (string, error)) (changespec.HookStatusLine, bool) {
	path := OutputPath(gaiHome, csName, sl.Timestamp)
	content, err := readFile(path)
	if err != nil {
		return sl, false // output file not there yet; still running
	}
	completion, ok := ScanCompletion(content)
	if !ok {
		return sl, false
	}

	start, startErr := timeutil.ParseTimestamp(sl.Timestamp)
	var duration time.Duration
	if completion.EndTimestamp != "" {
		if end, err := timeutil.ParseTimestamp(completion.EndTimestamp); err == nil && startErr == nil {
			duration = timeutil.DurationSince(start, end)
		}
	}
	if duration == 0 {
		if info, err := os.Stat(path); err == nil && startErr == nil {
			duration = timeutil.DurationSince(start, info.ModTime())
		}
	}

	status := "PASSED"
	if completion.ExitCode != 0 {
		status = "FAILED"
	}
	sl.Status = status
	sl.Duration = timeutil.FormatDuration(duration)
	return sl, true
}

// ZombieSweep implements Phase 1's zombie sweep: any RUNNING status line
// older than threshold (measured from its own timestamp) is marked KILLED.
func ZombieSweep(h changespec.HookEntry, now time.Time, threshold time.Duration) changespec.HookEntry {
	updated := make([]changespec.HookStatusLine, len(h.StatusLines))
	for i, sl := range h.StatusLines {
		updated[i] = sl
		if sl.Status != "RUNNING" {
			continue
		}
		start, err := timeutil.ParseTimestamp(sl.Timestamp)
		if err != nil {
			continue
		}
		if now.Sub(start) > threshold {
			updated[i].Status = "KILLED"
			log.Printf("%s: status line for entry %s aged past zombie threshold, marking KILLED", h.DisplayCommand(), sl.CommitEntryNum)
		}
	}
	h.StatusLines = updated
	return h
}

// StaleFixHookSweep implements Phase 1's stale fix-hook sweep: if the
// hook's latest status line carries a running_agent suffix whose embedded
// timestamp is older than threshold, the suffix is rewritten to an error.
func StaleFixHookSweep(h changespec.HookEntry, now time.Time, threshold time.Duration) changespec.HookEntry {
	latest, ok := h.LatestStatusLine()
	if !ok || latest.SuffixType != suffix.TypeRunningAgent {
		return h
	}
	ts := extractTrailingTimestamp(latest.Suffix)
	if ts == "" {
		return h
	}
	start, err := timeutil.ParseTimestamp(ts)
	if err != nil || now.Sub(start) <= threshold {
		return h
	}

	updated := make([]changespec.HookStatusLine, len(h.StatusLines))
	copy(updated, h.StatusLines)
	for i, sl := range updated {
		if sl.CommitEntryNum == latest.CommitEntryNum {
			updated[i].SuffixType = suffix.TypeError
			updated[i].Suffix = "Hook Command Failed"
		}
	}
	h.StatusLines = updated
	return h
}

func extractTrailingTimestamp(agentSuffix string) string {
	parts := strings.Split(agentSuffix, "-")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// CurrentEntryID returns the display number of the last COMMITS entry, the
// "current entry" hooks run against.
func CurrentEntryID(cs changespec.ChangeSpec) (string, bool) {
	if len(cs.Commits) == 0 {
		return "", false
	}
	return cs.Commits[len(cs.Commits)-1].DisplayNumber(), true
}

// NeedsToRun reports whether h must be (re)started against entryID: there
// is no status line for it yet, and it isn't a proposal entry skipped by a
// "$"-prefixed hook.
func NeedsToRun(h changespec.HookEntry, entryID string) bool {
	if _, ok := h.StatusLineForCommitEntry(entryID); ok {
		return false
	}
	_, letter := changespec.ParseCommitEntryID(entryID)
	if letter != "" && h.SkipProposalRuns() {
		return false
	}
	return true
}

// WorkflowTag builds the loop(hooks) workspace claim tag for a given
// ChangeSpec entry id, shared by non-proposal and proposal entries alike.
func WorkflowTag(entryID string) string {
	return "loop(hooks)-" + entryID
}
