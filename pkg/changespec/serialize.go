package changespec

import (
	"fmt"
	"strings"

	"github.com/gai-dev/gai/pkg/suffix"
)

// Serialize renders cs back into ".gp" text, the inverse of
// ParseChangeSpecFromLines.
func Serialize(cs ChangeSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "NAME: %s\n", cs.Name)

	b.WriteString("DESCRIPTION:\n")
	for _, line := range strings.Split(cs.Description, "\n") {
		if line == "" {
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	if cs.Parent != "" {
		fmt.Fprintf(&b, "PARENT: %s\n", cs.Parent)
	}
	if cs.CL != "" {
		fmt.Fprintf(&b, "CL: %s\n", cs.CL)
	}
	if cs.Bug != "" {
		fmt.Fprintf(&b, "BUG: %s\n", cs.Bug)
	}
	fmt.Fprintf(&b, "STATUS: %s\n", cs.Status)

	if cs.Kickstart != "" {
		b.WriteString("KICKSTART:\n")
		for _, line := range strings.Split(cs.Kickstart, "\n") {
			if line == "" {
				b.WriteString("\n")
			} else {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	if len(cs.TestTargets) > 0 {
		b.WriteString("TEST TARGETS:\n")
		for _, t := range cs.TestTargets {
			fmt.Fprintf(&b, "  %s\n", t)
		}
	}

	if len(cs.Commits) > 0 {
		b.WriteString("COMMITS:\n")
		for _, c := range cs.Commits {
			fmt.Fprintf(&b, "  (%s) %s", c.DisplayNumber(), c.Note)
			if c.Suffix != "" || c.SuffixType != "" {
				fmt.Fprintf(&b, " - (%s)", suffix.Emit(c.SuffixType, c.Suffix))
			}
			b.WriteString("\n")
			if c.Chat != "" {
				fmt.Fprintf(&b, "  | CHAT: %s\n", c.Chat)
			}
			if c.Diff != "" {
				fmt.Fprintf(&b, "  | DIFF: %s\n", c.Diff)
			}
		}
	}

	if len(cs.Hooks) > 0 {
		b.WriteString("HOOKS:\n")
		for _, h := range cs.Hooks {
			fmt.Fprintf(&b, "  %s\n", h.Command)
			for _, sl := range h.StatusLines {
				fmt.Fprintf(&b, "      | (%s) [%s] %s", sl.CommitEntryNum, sl.Timestamp, sl.Status)
				if sl.Duration != "" {
					fmt.Fprintf(&b, " (%s)", sl.Duration)
				}
				if sl.Suffix != "" || sl.SuffixType != "" {
					body := suffix.Emit(sl.SuffixType, sl.Suffix)
					if sl.Summary != "" {
						body += " | " + sl.Summary
					}
					fmt.Fprintf(&b, " - (%s)", body)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(cs.Comments) > 0 {
		b.WriteString("COMMENTS:\n")
		for _, c := range cs.Comments {
			fmt.Fprintf(&b, "  [%s] %s", c.Reviewer, c.FilePath)
			if c.Suffix != "" || c.SuffixType != "" {
				fmt.Fprintf(&b, " - (%s)", suffix.Emit(c.SuffixType, c.Suffix))
			}
			b.WriteString("\n")
		}
	}

	if len(cs.Mentors) > 0 {
		b.WriteString("MENTORS:\n")
		for _, m := range cs.Mentors {
			profiles := strings.Join(m.Profiles, " ")
			if m.IsWIP {
				profiles += " #WIP"
			}
			fmt.Fprintf(&b, "  (%s) %s\n", m.EntryID, profiles)
			for _, sl := range m.StatusLines {
				var ts string
				if sl.Timestamp != "" {
					ts = fmt.Sprintf("[%s] ", sl.Timestamp)
				}
				fmt.Fprintf(&b, "      | %s%s:%s - %s", ts, sl.ProfileName, sl.MentorName, sl.Status)
				switch {
				case sl.SuffixType != "" && sl.SuffixType != suffix.TypePlain:
					fmt.Fprintf(&b, " - (%s)", suffix.Emit(sl.SuffixType, sl.Suffix))
				case sl.Duration != "":
					fmt.Fprintf(&b, " - (%s)", sl.Duration)
				}
				b.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
