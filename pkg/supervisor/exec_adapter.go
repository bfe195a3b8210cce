package supervisor

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/gai-dev/gai/pkg/stringutil"
)

// maxSubprocessOutputInError caps how much of a failed subprocess's combined
// output gets folded into an error message, after secret-name redaction.
const maxSubprocessOutputInError = 2000

// ExecAmend returns an AmendFunc that runs commandTemplate inside
// workspaceDir with note appended as its final argument, analogous to
// running "bb_hg_amend <note>". note is passed as a single argv entry
// rather than substituted into the template string, since a commit note
// may contain spaces that would otherwise be mis-split.
func ExecAmend(commandTemplate string) AmendFunc {
	return func(workspaceDir, note string) error {
		args := strings.Fields(commandTemplate)
		if len(args) == 0 {
			return fmt.Errorf("supervisor: ExecAmend: empty command template")
		}
		args = append(args, note)
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = workspaceDir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("supervisor: amend in %s: %w: %s", workspaceDir, err, sanitizedOutput(out))
		}
		return nil
	}
}

func sanitizedOutput(out []byte) string {
	return stringutil.Truncate(stringutil.SanitizeErrorMessage(string(out)), maxSubprocessOutputInError)
}
