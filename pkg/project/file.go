package project

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gai-dev/gai/pkg/changespec"
)

// runningLinePattern matches one claim line in the RUNNING: block:
//
//	(1) axe pid=12345 cl=my-cs ts=260730_143022
var runningLinePattern = regexp.MustCompile(`^\((\d+)\)\s+(\S+)\s+pid=(\d+)(?:\s+cl=(\S+))?(?:\s+ts=(\S+))?$`)

// ParseProjectFileText parses a full .gp project file: an optional BUG:
// header, an optional RUNNING: claim block, and the ChangeSpecs that follow.
func ParseProjectFileText(text, filePath string) Spec {
	lines := strings.Split(text, "\n")

	spec := Spec{FilePath: filePath}
	var running []WorkspaceClaim
	bodyStart := 0

	for idx := 0; idx < len(lines); idx++ {
		line := lines[idx]
		switch {
		case strings.HasPrefix(line, "BUG: "):
			spec.Bug = strings.TrimSpace(line[5:])
			bodyStart = idx + 1
		case strings.HasPrefix(line, "RUNNING:"):
			idx++
			for idx < len(lines) && strings.HasPrefix(lines[idx], "  ") {
				if m := runningLinePattern.FindStringSubmatch(strings.TrimSpace(lines[idx])); m != nil {
					workspaceNum, _ := strconv.Atoi(m[1])
					pid, _ := strconv.Atoi(m[3])
					running = append(running, WorkspaceClaim{
						WorkspaceNum:       workspaceNum,
						Workflow:           m[2],
						PID:                pid,
						CLName:             m[4],
						ArtifactsTimestamp: m[5],
					})
				}
				idx++
			}
			idx--
			bodyStart = idx + 1
		case strings.TrimSpace(line) == "":
			continue
		default:
			goto done
		}
	}
done:
	spec.Running = running

	body := strings.Join(lines[bodyStart:], "\n")
	spec.ChangeSpecs = changespec.ParseProjectFileText(body, filePath)
	return spec
}

// Serialize renders spec back into .gp project file text.
func Serialize(spec Spec) string {
	var b strings.Builder

	if spec.Bug != "" {
		fmt.Fprintf(&b, "BUG: %s\n", spec.Bug)
	}
	if len(spec.Running) > 0 {
		b.WriteString("RUNNING:\n")
		for _, c := range spec.Running {
			fmt.Fprintf(&b, "  (%d) %s pid=%d", c.WorkspaceNum, c.Workflow, c.PID)
			if c.CLName != "" {
				fmt.Fprintf(&b, " cl=%s", c.CLName)
			}
			if c.ArtifactsTimestamp != "" {
				fmt.Fprintf(&b, " ts=%s", c.ArtifactsTimestamp)
			}
			b.WriteString("\n")
		}
	}
	if spec.Bug != "" || len(spec.Running) > 0 {
		b.WriteString("\n")
	}

	for i, cs := range spec.ChangeSpecs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(changespec.Serialize(cs))
	}
	b.WriteString("\n")
	return b.String()
}
