package agents

import (
	"sort"
	"time"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/project"
	"github.com/gai-dev/gai/pkg/suffix"
	"github.com/gai-dev/gai/pkg/timeutil"
)

// IsAliveFunc probes whether a PID names a live process. Injected so
// Collect is testable without touching real processes; pass
// pkg/procutil.IsAlive in production.
type IsAliveFunc func(pid int) bool

func startTime(ts string) *time.Time {
	if ts == "" {
		return nil
	}
	t, err := timeutil.ParseTimestamp(ts)
	if err != nil {
		return nil
	}
	return &t
}

func pidPtr(raw string) *int {
	pid, ok := changespec.ExtractPIDFromAgentSuffix(raw)
	if !ok {
		return nil
	}
	return &pid
}

// Collect walks spec's RUNNING claims and cs's HOOKS/MENTORS/COMMENTS
// running_agent suffixes, builds one Agent per live entry, drops any whose
// embedded PID names a dead process, and returns them sorted start-time
// descending (agents with no parseable start time sort last).
func Collect(spec project.Spec, cs changespec.ChangeSpec, isAlive IsAliveFunc) []Agent {
	var out []Agent

	for _, claim := range spec.Running {
		if claim.CLName != cs.Name {
			continue
		}
		common := Common{
			CLName:      cs.Name,
			ProjectFile: spec.FilePath,
			Status:      "RUNNING",
			RawSuffix:   claim.ArtifactsTimestamp,
			StartTime:   startTime(claim.ArtifactsTimestamp),
			PID:         intPtr(claim.PID),
		}
		out = append(out, RunningAgent{Common: common, WorkspaceNum: claim.WorkspaceNum, Workflow: claim.Workflow})
	}

	for _, h := range cs.Hooks {
		sl, ok := h.LatestStatusLine()
		if !ok || sl.SuffixType != suffix.TypeRunningAgent {
			continue
		}
		common := Common{
			CLName:      cs.Name,
			ProjectFile: spec.FilePath,
			Status:      sl.Status,
			RawSuffix:   sl.Suffix,
			StartTime:   startTime(extractAgentTimestamp(sl.Suffix)),
			PID:         pidPtr(sl.Suffix),
		}
		_, letter := changespec.ParseCommitEntryID(sl.CommitEntryNum)
		if letter != "" {
			out = append(out, SummarizeAgent{Common: common, HookCommand: h.DisplayCommand(), CommitEntryNum: sl.CommitEntryNum})
		} else {
			out = append(out, FixHookAgent{Common: common, HookCommand: h.DisplayCommand(), CommitEntryNum: sl.CommitEntryNum})
		}
	}

	for _, m := range cs.Mentors {
		for _, sl := range m.StatusLines {
			if sl.SuffixType != suffix.TypeRunningAgent {
				continue
			}
			common := Common{
				CLName:      cs.Name,
				ProjectFile: spec.FilePath,
				Status:      sl.Status,
				RawSuffix:   sl.Suffix,
				StartTime:   startTime(extractAgentTimestamp(sl.Suffix)),
				PID:         pidPtr(sl.Suffix),
			}
			out = append(out, MentorAgent{Common: common, Profile: sl.ProfileName, Mentor: sl.MentorName})
		}
	}

	for _, c := range cs.Comments {
		if c.SuffixType != suffix.TypeRunningAgent {
			continue
		}
		common := Common{
			CLName:      cs.Name,
			ProjectFile: spec.FilePath,
			Status:      "RUNNING",
			RawSuffix:   c.Suffix,
			StartTime:   startTime(extractAgentTimestamp(c.Suffix)),
			PID:         pidPtr(c.Suffix),
		}
		out = append(out, CrsAgent{Common: common, Reviewer: c.Reviewer})
	}

	out = filterDead(out, isAlive)
	sortByStartTimeDescending(out)
	return out
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// extractAgentTimestamp pulls the trailing "YYmmdd_HHMMSS" off a
// running_agent suffix of any shape ("<agent>-<pid>-<ts>", legacy
// "<agent>-<ts>", or a bare "<ts>").
func extractAgentTimestamp(rawSuffix string) string {
	if rawSuffix == "" {
		return ""
	}
	idx := -1
	for i := len(rawSuffix) - 1; i >= 0; i-- {
		if rawSuffix[i] == '-' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return rawSuffix
	}
	return rawSuffix[idx+1:]
}

func filterDead(in []Agent, isAlive IsAliveFunc) []Agent {
	if isAlive == nil {
		return in
	}
	out := make([]Agent, 0, len(in))
	for _, a := range in {
		pid := a.Base().PID
		if pid != nil && !isAlive(*pid) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sortByStartTimeDescending(agents []Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		ti, tj := agents[i].Base().StartTime, agents[j].Base().StartTime
		switch {
		case ti == nil && tj == nil:
			return false
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
}
