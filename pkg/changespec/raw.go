package changespec

import (
	"os"
	"regexp"
	"strings"
)

var rawHeaderPattern = regexp.MustCompile(`^##\s+ChangeSpec`)

// GetRawChangeSpecText re-reads cs.FilePath and extracts the exact on-disk
// text of this ChangeSpec, starting at cs.LineNumber, using the same
// end-of-ChangeSpec conditions the parser uses. Returns false if the file
// can't be read or the line number is out of range.
func GetRawChangeSpecText(cs ChangeSpec) (string, bool) {
	data, err := os.ReadFile(cs.FilePath)
	if err != nil {
		return "", false
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	startIdx := cs.LineNumber - 1
	if startIdx < 0 || startIdx >= len(lines) {
		return "", false
	}

	var result []string
	consecutiveBlank := 0
	idx := startIdx

	for idx < len(lines) {
		line := lines[idx]
		stripped := strings.TrimSpace(line)

		if idx > startIdx {
			if rawHeaderPattern.MatchString(stripped) {
				break
			}
			if strings.HasPrefix(line, "NAME: ") {
				break
			}
		}

		if stripped == "" {
			consecutiveBlank++
			if consecutiveBlank >= 2 {
				result = append(result, line)
				break
			}
		} else {
			consecutiveBlank = 0
		}

		result = append(result, line)
		idx++
	}

	for len(result) > 0 && strings.TrimSpace(result[len(result)-1]) == "" {
		result = result[:len(result)-1]
	}
	if len(result) == 0 {
		return "", false
	}

	return strings.Join(result, "\n"), true
}
