package changespec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gai-dev/gai/pkg/suffix"
)

// parserState accumulates the fields and section entries of one ChangeSpec
// while scanning its lines.
type parserState struct {
	name            string
	haveName        bool
	descriptionLine []string
	parent          string
	cl              string
	bug             string
	status          string
	haveStatus      bool
	testTargets     []string
	kickstartLines  []string

	commitEntries       []CommitEntry
	currentCommitEntry  *commitEntryBuilder
	hookEntries         []HookEntry
	currentHookEntry    *HookEntry
	commentEntries      []CommentEntry
	mentorEntries       []MentorEntry
	currentMentorEntry  *MentorEntry

	lineNumber int
	filePath   string

	inDescription bool
	inTestTargets bool
	inKickstart   bool
	inCommits     bool
	inHooks       bool
	inComments    bool
	inMentors     bool
}

type commitEntryBuilder struct {
	number         int
	proposalLetter string
	note           string
	chat           string
	diff           string
	suffix         string
	suffixType     suffix.Type
}

func newParserState(startIdx int, filePath string) *parserState {
	return &parserState{
		lineNumber: startIdx + 1,
		filePath:   filePath,
	}
}

func (s *parserState) resetSectionFlags() {
	s.inDescription = false
	s.inTestTargets = false
	s.inKickstart = false
	s.inCommits = false
	s.inHooks = false
	s.inComments = false
	s.inMentors = false
}

func (s *parserState) savePendingEntries() {
	if s.currentCommitEntry != nil {
		s.commitEntries = append(s.commitEntries, s.currentCommitEntry.build())
		s.currentCommitEntry = nil
	}
	if s.currentHookEntry != nil {
		s.hookEntries = append(s.hookEntries, *s.currentHookEntry)
		s.currentHookEntry = nil
	}
	if s.currentMentorEntry != nil {
		s.mentorEntries = append(s.mentorEntries, *s.currentMentorEntry)
		s.currentMentorEntry = nil
	}
}

func (b *commitEntryBuilder) build() CommitEntry {
	return CommitEntry{
		Number:         b.number,
		Note:           b.note,
		Chat:           b.chat,
		Diff:           b.diff,
		ProposalLetter: b.proposalLetter,
		Suffix:         b.suffix,
		SuffixType:     b.suffixType,
	}
}

func (s *parserState) build() (ChangeSpec, bool) {
	s.savePendingEntries()
	if s.haveName && s.haveStatus {
		description := strings.TrimSpace(strings.Join(s.descriptionLine, "\n"))
		var kickstart string
		if len(s.kickstartLines) > 0 {
			kickstart = strings.TrimSpace(strings.Join(s.kickstartLines, "\n"))
		}
		return ChangeSpec{
			Name:        s.name,
			Description: description,
			Parent:      s.parent,
			CL:          s.cl,
			Bug:         s.bug,
			Status:      s.status,
			TestTargets: s.testTargets,
			Kickstart:   kickstart,
			FilePath:    s.filePath,
			LineNumber:  s.lineNumber,
			Commits:     s.commitEntries,
			Hooks:       s.hookEntries,
			Comments:    s.commentEntries,
			Mentors:     s.mentorEntries,
		}, true
	}
	return ChangeSpec{}, false
}

// parseFieldHeader handles NAME:/DESCRIPTION:/KICKSTART:/PARENT:/CL:/BUG:/
// STATUS: lines. It returns (handled, stop) where stop signals a second
// NAME: was seen and the caller should treat this as a new ChangeSpec.
func parseFieldHeader(s *parserState, line string) (handled, stop bool) {
	switch {
	case strings.HasPrefix(line, "NAME: "):
		if s.haveName {
			return false, true
		}
		s.name = strings.TrimSpace(line[6:])
		s.haveName = true
		s.resetSectionFlags()
		return true, false

	case strings.HasPrefix(line, "DESCRIPTION:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inDescription = true
		if inline := strings.TrimSpace(line[len("DESCRIPTION:"):]); inline != "" {
			s.descriptionLine = append(s.descriptionLine, inline)
		}
		return true, false

	case strings.HasPrefix(line, "KICKSTART:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inKickstart = true
		if inline := strings.TrimSpace(line[len("KICKSTART:"):]); inline != "" {
			s.kickstartLines = append(s.kickstartLines, inline)
		}
		return true, false

	case strings.HasPrefix(line, "PARENT: "):
		s.savePendingEntries()
		s.parent = strings.TrimSpace(line[8:])
		s.resetSectionFlags()
		return true, false

	case strings.HasPrefix(line, "CL: "):
		s.savePendingEntries()
		s.cl = strings.TrimSpace(line[4:])
		s.resetSectionFlags()
		return true, false

	case strings.HasPrefix(line, "BUG: "):
		s.savePendingEntries()
		s.bug = strings.TrimSpace(line[5:])
		s.resetSectionFlags()
		return true, false

	case strings.HasPrefix(line, "STATUS: "):
		s.savePendingEntries()
		s.status = strings.TrimSpace(line[8:])
		s.haveStatus = true
		s.resetSectionFlags()
		return true, false
	}
	return false, false
}

// parseSectionHeader handles COMMITS:/HOOKS:/COMMENTS:/MENTORS:/TEST TARGETS:
// lines.
func parseSectionHeader(s *parserState, line string) bool {
	switch {
	case strings.HasPrefix(line, "COMMITS:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inCommits = true
		return true
	case strings.HasPrefix(line, "HOOKS:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inHooks = true
		return true
	case strings.HasPrefix(line, "COMMENTS:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inComments = true
		return true
	case strings.HasPrefix(line, "MENTORS:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inMentors = true
		return true
	case strings.HasPrefix(line, "TEST TARGETS:"):
		s.savePendingEntries()
		s.resetSectionFlags()
		s.inTestTargets = true
		if inline := strings.TrimSpace(line[len("TEST TARGETS:"):]); inline != "" {
			s.testTargets = append(s.testTargets, inline)
		}
		return true
	}
	return false
}

func parseSectionContent(s *parserState, line string) {
	stripped := strings.TrimSpace(line)

	switch {
	case s.inHooks:
		parseHooksLine(s, line, stripped)
	case s.inComments:
		parseCommentsLine(s, line, stripped)
	case s.inMentors:
		parseMentorsLine(s, line, stripped)
	case s.inCommits:
		parseCommitsLine(s, stripped)
	case s.inDescription && strings.HasPrefix(line, "  "):
		s.descriptionLine = append(s.descriptionLine, strings.TrimRight(line[2:], "\n"))
	case s.inKickstart && strings.HasPrefix(line, "  "):
		s.kickstartLines = append(s.kickstartLines, strings.TrimRight(line[2:], "\n"))
	case s.inTestTargets && strings.HasPrefix(line, "  "):
		if stripped != "" {
			s.testTargets = append(s.testTargets, stripped)
		}
	case stripped == "":
		if s.inDescription {
			s.descriptionLine = append(s.descriptionLine, "")
		} else if s.inKickstart {
			s.kickstartLines = append(s.kickstartLines, "")
		}
	case !strings.HasPrefix(line, "#"):
		s.resetSectionFlags()
	}
}

var hookStatusPattern = regexp.MustCompile(
	`^\((\d+[a-z]?)\)\s+\[(\d{6})_(\d{6})\]\s*(RUNNING|PASSED|FAILED|DEAD|KILLED)` +
		`(?:\s+\(([^)]+)\))?(?:\s+-\s+\(([^)]+)\))?$`,
)

func parseHooksLine(s *parserState, line, stripped string) {
	switch {
	case strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "    "):
		if !strings.HasPrefix(stripped, "[") && !strings.HasPrefix(stripped, "(") {
			if s.currentHookEntry != nil {
				s.hookEntries = append(s.hookEntries, *s.currentHookEntry)
			}
			entry := HookEntry{Command: stripped}
			s.currentHookEntry = &entry
		}
	case strings.HasPrefix(line, "      | "):
		statusContent := stripped[2:]
		m := hookStatusPattern.FindStringSubmatch(statusContent)
		if m != nil && s.currentHookEntry != nil {
			commitNum := m[1]
			timestamp := m[2] + "_" + m[3]
			status := m[4]
			duration := m[5]
			suffixVal := m[6]
			var summary string

			if suffixVal != "" {
				if idx := strings.Index(suffixVal, " | "); idx >= 0 {
					summary = suffixVal[idx+3:]
					suffixVal = suffixVal[:idx]
				}
			}

			parsed := suffix.Parse(suffixVal)

			s.currentHookEntry.StatusLines = append(s.currentHookEntry.StatusLines, HookStatusLine{
				CommitEntryNum: commitNum,
				Timestamp:      timestamp,
				Status:         status,
				Duration:       duration,
				Suffix:         parsed.Text,
				SuffixType:     parsed.Type,
				Summary:        summary,
			})
		}
	}
}

var commentPattern = regexp.MustCompile(`^\[([^\]]+)\]\s+(\S+)(?:\s+-\s+\(([^)]+)\))?$`)

func parseCommentsLine(s *parserState, line, stripped string) {
	if !strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "    ") {
		return
	}
	m := commentPattern.FindStringSubmatch(stripped)
	if m == nil {
		return
	}
	reviewer, filePath, suffixRaw := m[1], m[2], m[3]
	var suffixText string
	var suffixType suffix.Type
	if suffixRaw != "" {
		parsed := suffix.Parse(suffixRaw)
		suffixText, suffixType = parsed.Text, parsed.Type
	}
	s.commentEntries = append(s.commentEntries, CommentEntry{
		Reviewer:   reviewer,
		FilePath:   filePath,
		Suffix:     suffixText,
		SuffixType: suffixType,
	})
}

var mentorEntryPattern = regexp.MustCompile(`^\((\d+[a-z]?)\)\s+(.+)$`)
var mentorProfilePattern = regexp.MustCompile(`(\w+)\[\d+/\d+\]`)
var mentorStatusPattern = regexp.MustCompile(
	`^(?:\[(\d{6}_\d{6})\]\s+)?([^:]+):(\S+)\s+-\s+(RUNNING|PASSED|FAILED)` +
		`(?:\s+-\s+\(([^)]+)\))?$`,
)

func parseMentorsLine(s *parserState, line, stripped string) {
	switch {
	case strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "      "):
		m := mentorEntryPattern.FindStringSubmatch(stripped)
		if m == nil {
			return
		}
		if s.currentMentorEntry != nil {
			s.mentorEntries = append(s.mentorEntries, *s.currentMentorEntry)
		}
		entryID := m[1]
		profilesRaw := m[2]
		isWIP := strings.HasSuffix(strings.TrimRight(profilesRaw, " "), "#WIP")
		if isWIP {
			profilesRaw = strings.TrimRight(strings.Replace(profilesRaw, " #WIP", "", 1), " ")
		}
		profiles := mentorProfilePattern.FindAllStringSubmatch(profilesRaw, -1)
		var names []string
		for _, pm := range profiles {
			names = append(names, pm[1])
		}
		if len(names) == 0 {
			names = strings.Fields(profilesRaw)
		}
		s.currentMentorEntry = &MentorEntry{
			EntryID:  entryID,
			Profiles: names,
			IsWIP:    isWIP,
		}

	case strings.HasPrefix(line, "      | "):
		statusContent := stripped[2:]
		m := mentorStatusPattern.FindStringSubmatch(statusContent)
		if m == nil || s.currentMentorEntry == nil {
			return
		}
		timestamp := m[1]
		profileName := m[2]
		mentorName := m[3]
		status := m[4]
		suffixRaw := m[5]

		var suffixText, duration string
		var suffixType suffix.Type
		if suffixRaw != "" {
			parsed := suffix.Parse(suffixRaw)
			if parsed.Type != "" && parsed.Type != suffix.TypePlain {
				suffixText, suffixType = parsed.Text, parsed.Type
			} else if isEntryRefSuffix(suffixRaw) {
				suffixType = suffix.TypeEntryRef
				suffixText = suffixRaw
			} else {
				duration = suffixRaw
				suffixType = suffix.TypePlain
			}
		}

		s.currentMentorEntry.StatusLines = append(s.currentMentorEntry.StatusLines, MentorStatusLine{
			ProfileName: profileName,
			MentorName:  mentorName,
			Status:      status,
			Timestamp:   timestamp,
			Duration:    duration,
			Suffix:      suffixText,
			SuffixType:  suffixType,
		})
	}
}

// isEntryRefSuffix reports whether text looks like a COMMITS entry id
// ("2a"), the shape produced when a mentor run files a new proposal rather
// than a plain elapsed-duration suffix.
func isEntryRefSuffix(text string) bool {
	return entryIDPattern.MatchString(text)
}

var commitEntryPattern = regexp.MustCompile(`^\((\d+)([a-z])?\)\s+(.+)$`)
var commitSuffixPattern = regexp.MustCompile(`\s+-\s+\((~!:|!:|~:|@:)?\s*([^)]+)\)$`)

func parseCommitsLine(s *parserState, stripped string) {
	if m := commitEntryPattern.FindStringSubmatch(stripped); m != nil {
		if s.currentCommitEntry != nil {
			s.commitEntries = append(s.commitEntries, s.currentCommitEntry.build())
		}
		rawNote := m[3]
		number, _ := strconv.Atoi(m[1])

		var noteWithoutSuffix, suffixMsg string
		var suffixType suffix.Type
		if sm := commitSuffixPattern.FindStringSubmatch(rawNote); sm != nil {
			loc := commitSuffixPattern.FindStringIndex(rawNote)
			noteWithoutSuffix = rawNote[:loc[0]]
			prefix := sm[1]
			suffixMsg = strings.TrimSpace(sm[2])
			switch prefix {
			case "~!:":
				suffixType = suffix.TypeRejectedProposal
			case "!:":
				suffixType = suffix.TypeError
			case "~:":
				suffixType = suffix.TypePlain
			case "@:":
				suffixType = suffix.TypeRunningAgent
			}
			if suffixMsg == "@" {
				suffixMsg = ""
				suffixType = suffix.TypeRunningAgent
			}
		} else {
			noteWithoutSuffix = rawNote
		}

		s.currentCommitEntry = &commitEntryBuilder{
			number:         number,
			proposalLetter: m[2],
			note:           noteWithoutSuffix,
			suffix:         suffixMsg,
			suffixType:     suffixType,
		}
		return
	}

	switch {
	case strings.HasPrefix(stripped, "| CHAT:"):
		if s.currentCommitEntry != nil {
			s.currentCommitEntry.chat = strings.TrimSpace(stripped[7:])
		}
	case strings.HasPrefix(stripped, "| DIFF:"):
		if s.currentCommitEntry != nil {
			s.currentCommitEntry.diff = strings.TrimSpace(stripped[7:])
		}
	}
}

var changeSpecHeaderPattern = regexp.MustCompile(`^##\s+ChangeSpec`)

// ParseChangeSpecFromLines parses a single ChangeSpec starting at startIdx,
// returning the parsed spec (if NAME and STATUS were both found) and the
// index of the next unconsumed line.
func ParseChangeSpecFromLines(lines []string, startIdx int, filePath string) (ChangeSpec, bool, int) {
	state := newParserState(startIdx, filePath)
	idx := startIdx
	consecutiveBlank := 0

	for idx < len(lines) {
		line := lines[idx]

		if idx > startIdx && changeSpecHeaderPattern.MatchString(strings.TrimSpace(line)) {
			break
		}
		if strings.TrimSpace(line) == "" {
			consecutiveBlank++
			if consecutiveBlank >= 2 {
				break
			}
		} else {
			consecutiveBlank = 0
		}

		if handled, stop := parseFieldHeader(state, line); stop {
			state.savePendingEntries()
			idx--
			break
		} else if handled {
			idx++
			continue
		}

		if strings.HasPrefix(line, "NAME: ") && state.haveName {
			state.savePendingEntries()
			idx--
			break
		}

		if parseSectionHeader(state, line) {
			idx++
			continue
		}

		parseSectionContent(state, line)
		idx++
	}

	cs, ok := state.build()
	return cs, ok, idx
}

// ParseProjectFileText parses every ChangeSpec out of a project file's full
// text (ChangeSpecs may each be introduced by a "## ChangeSpec" header or
// start directly with a bare "NAME:" line).
func ParseProjectFileText(text, filePath string) []ChangeSpec {
	lines := splitLinesKeepEmpty(text)
	var specs []ChangeSpec

	idx := 0
	for idx < len(lines) {
		line := lines[idx]
		trimmed := strings.TrimSpace(line)
		switch {
		case changeSpecHeaderPattern.MatchString(trimmed):
			cs, ok, next := ParseChangeSpecFromLines(lines, idx+1, filePath)
			if ok {
				specs = append(specs, cs)
			}
			idx = next
		case strings.HasPrefix(line, "NAME: "):
			cs, ok, next := ParseChangeSpecFromLines(lines, idx, filePath)
			if ok {
				specs = append(specs, cs)
			}
			idx = next
		default:
			idx++
		}
	}
	return specs
}

func splitLinesKeepEmpty(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
