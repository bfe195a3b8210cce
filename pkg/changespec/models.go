// Package changespec implements the ProjectSpec/ChangeSpec text format: its
// data model, parser, serializer, and the pure immutable-update helpers used
// to mutate a parsed tree without ever editing the source text by hand.
package changespec

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gai-dev/gai/pkg/suffix"
)

// errorSuffixMessages are the well-known suffix bodies that indicate an
// error condition even when the type wasn't recorded explicitly.
var errorSuffixMessages = map[string]bool{
	"ZOMBIE":                       true,
	"Hook Command Failed":          true,
	"Unresolved Critique Comments": true,
}

// IsErrorSuffix reports whether suffix indicates an error condition on its
// own text, independent of any recorded SuffixType.
func IsErrorSuffix(text string) bool {
	return errorSuffixMessages[text]
}

var agentSuffixLegacyLen = 13 // len("YYmmdd_HHMMSS")

// IsRunningAgentSuffix reports whether text has the shape of a running-agent
// suffix: "<agent>-<PID>-YYmmdd_HHMMSS", the legacy "<agent>-YYmmdd_HHMMSS",
// a bare "YYmmdd_HHMMSS" timestamp, or the older bare 12-digit timestamp.
func IsRunningAgentSuffix(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, "-") {
		parts := strings.Split(text, "-")
		if len(parts) >= 3 {
			ts := parts[len(parts)-1]
			pid := parts[len(parts)-2]
			if isAllDigits(pid) && len(ts) == agentSuffixLegacyLen && ts[6] == '_' {
				return true
			}
		}
		if len(parts) == 2 {
			agent, ts := parts[0], parts[1]
			if agent != "" && len(ts) == agentSuffixLegacyLen && ts[6] == '_' {
				return true
			}
		}
	}
	if len(text) == agentSuffixLegacyLen && text[6] == '_' {
		return true
	}
	if len(text) == 12 && isAllDigits(text) {
		return true
	}
	return false
}

// IsRunningProcessSuffix reports whether text is a bare PID: all digits,
// non-empty.
func IsRunningProcessSuffix(text string) bool {
	return text != "" && isAllDigits(text)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractPIDFromAgentSuffix extracts the PID embedded in a running-agent
// suffix of the form "<agent>-<PID>-<timestamp>". The second return value is
// false if text doesn't have that shape.
func ExtractPIDFromAgentSuffix(text string) (int, bool) {
	if !strings.Contains(text, "-") {
		return 0, false
	}
	parts := strings.Split(text, "-")
	if len(parts) < 3 {
		return 0, false
	}
	pidStr := parts[len(parts)-2]
	if !isAllDigits(pidStr) {
		return 0, false
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, false
	}
	return pid, true
}

// ReadyToMailSuffix is appended to a STATUS value to mark a ChangeSpec ready
// for mailing.
const ReadyToMailSuffix = " - (!: READY TO MAIL)"

const readyToMailMarker = "(!: READY TO MAIL)"

// HasReadyToMailSuffix reports whether status carries the READY TO MAIL
// marker.
func HasReadyToMailSuffix(status string) bool {
	return strings.Contains(status, readyToMailMarker)
}

// GetBaseStatus strips the READY TO MAIL marker from status, if present.
func GetBaseStatus(status string) string {
	if HasReadyToMailSuffix(status) {
		return strings.TrimSpace(strings.Replace(status, ReadyToMailSuffix, "", 1))
	}
	return status
}

// CommitEntry is a single "(N) Note text" or proposed "(Na) Note text" line
// inside a ChangeSpec's COMMITS field.
type CommitEntry struct {
	Number         int
	Note           string
	Chat           string
	Diff           string
	ProposalLetter string
	Suffix         string
	SuffixType     suffix.Type
}

// IsProposed reports whether this is a not-yet-accepted proposal entry.
func (c CommitEntry) IsProposed() bool {
	return c.ProposalLetter != ""
}

// DisplayNumber renders the entry's id, e.g. "2" or "2a".
func (c CommitEntry) DisplayNumber() string {
	if c.ProposalLetter != "" {
		return strconv.Itoa(c.Number) + c.ProposalLetter
	}
	return strconv.Itoa(c.Number)
}

var entryIDPattern = regexp.MustCompile(`^(\d+)([a-z]?)$`)

// ParseCommitEntryID splits an entry id like "2a" into (2, "a") for sorting;
// "2" becomes (2, ""). Unparseable input returns (0, entryID) unchanged.
func ParseCommitEntryID(entryID string) (int, string) {
	m := entryIDPattern.FindStringSubmatch(entryID)
	if m == nil {
		return 0, entryID
	}
	n, _ := strconv.Atoi(m[1])
	return n, m[2]
}

// HookStatusLine is a single "(N) [timestamp] STATUS (duration) - (suffix)"
// line recorded for one hook command against one COMMITS entry.
type HookStatusLine struct {
	CommitEntryNum string
	Timestamp      string
	Status         string // RUNNING, PASSED, FAILED, KILLED (DEAD accepted on parse only)
	Duration       string
	Suffix         string
	SuffixType     suffix.Type
	Summary        string
}

// HookEntry is one command inside the HOOKS field, plus its accumulated
// per-COMMITS-entry status history.
type HookEntry struct {
	Command     string
	StatusLines []HookStatusLine
}

func (h HookEntry) prefix() string {
	var b strings.Builder
	for _, r := range h.Command {
		if r == '!' || r == '$' {
			b.WriteRune(r)
		} else {
			break
		}
	}
	return b.String()
}

// SkipFixHook reports whether the "!" prefix is present: FAILED runs of this
// hook should not trigger a fix-hook agent.
func (h HookEntry) SkipFixHook() bool {
	return strings.Contains(h.prefix(), "!")
}

// SkipProposalRuns reports whether the "$" prefix is present: this hook is
// not run against proposed ("Na") COMMITS entries.
func (h HookEntry) SkipProposalRuns() bool {
	return strings.Contains(h.prefix(), "$")
}

// DisplayCommand strips the leading "!"/"$" prefix characters.
func (h HookEntry) DisplayCommand() string {
	return strings.TrimLeft(h.Command, "!$")
}

// RunCommand is the command to actually execute, prefix stripped.
func (h HookEntry) RunCommand() string {
	return strings.TrimLeft(h.Command, "!$")
}

// LatestStatusLine returns the status line with the highest commit entry id,
// or false if there are none.
func (h HookEntry) LatestStatusLine() (HookStatusLine, bool) {
	if len(h.StatusLines) == 0 {
		return HookStatusLine{}, false
	}
	best := h.StatusLines[0]
	bestNum, bestLetter := ParseCommitEntryID(best.CommitEntryNum)
	for _, sl := range h.StatusLines[1:] {
		num, letter := ParseCommitEntryID(sl.CommitEntryNum)
		if num > bestNum || (num == bestNum && letter > bestLetter) {
			best, bestNum, bestLetter = sl, num, letter
		}
	}
	return best, true
}

// StatusLineForCommitEntry returns the status line recorded for a specific
// COMMITS entry id, e.g. "1" or "1a".
func (h HookEntry) StatusLineForCommitEntry(commitEntryID string) (HookStatusLine, bool) {
	for _, sl := range h.StatusLines {
		if sl.CommitEntryNum == commitEntryID {
			return sl, true
		}
	}
	return HookStatusLine{}, false
}

// MentorStatusLine is one "| [timestamp] profile:mentor - STATUS - (suffix)"
// line recorded for a profile+mentor pairing.
type MentorStatusLine struct {
	ProfileName string
	MentorName  string
	Status      string // RUNNING, PASSED, FAILED
	Timestamp   string
	Duration    string
	Suffix      string
	SuffixType  suffix.Type
}

// MentorEntry is one "(id) profile[...] ..." entry inside the MENTORS field.
type MentorEntry struct {
	EntryID     string
	Profiles    []string
	StatusLines []MentorStatusLine
	IsWIP       bool
}

// StatusLine returns the status line for a specific profile+mentor pairing.
func (m MentorEntry) StatusLine(profileName, mentorName string) (MentorStatusLine, bool) {
	for _, sl := range m.StatusLines {
		if sl.ProfileName == profileName && sl.MentorName == mentorName {
			return sl, true
		}
	}
	return MentorStatusLine{}, false
}

// CommentEntry is one "[reviewer] path - (suffix)" line inside the COMMENTS
// field.
type CommentEntry struct {
	Reviewer string
	FilePath string
	Suffix   string
	SuffixType suffix.Type
}

// ChangeSpec is a single parsed "## ChangeSpec" block.
type ChangeSpec struct {
	Name        string
	Description string
	Parent      string
	CL          string
	Bug         string
	Status      string
	TestTargets []string
	Kickstart   string
	FilePath    string
	LineNumber  int
	Commits     []CommitEntry
	Hooks       []HookEntry
	Comments    []CommentEntry
	Mentors     []MentorEntry
}

// ProjectBasename returns the ChangeSpec's project file name without its
// extension, e.g. "myproject" from "myproject.gp".
func (c ChangeSpec) ProjectBasename() string {
	base := filepath.Base(c.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
