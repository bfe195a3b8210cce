package hooks

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gai-dev/gai/pkg/procutil"
	"github.com/gai-dev/gai/pkg/stringutil"
)

// maxSubprocessOutputInError caps how much of a failed subprocess's combined
// output gets folded into an error message, after secret-name redaction.
const maxSubprocessOutputInError = 2000

// ExecSync returns a SyncFunc that runs commandTemplate (split on
// whitespace, with "{name}" substituted for the ChangeSpec name) inside dir.
// Concrete sync tooling is out of scope per spec.md §6; this adapter lets a
// deployment plug in whatever the underlying version-control system uses
// ("bb_hg_update {name}", a custom git-worktree script, etc.) without
// touching the scheduler.
func ExecSync(commandTemplate string) SyncFunc {
	return func(dir, csName string) error {
		args := substituteAndSplit(commandTemplate, csName)
		if len(args) == 0 {
			return fmt.Errorf("hooks: ExecSync: empty command template")
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("hooks: sync %s in %s: %w: %s", csName, dir, err, sanitizedOutput(out))
		}
		return nil
	}
}

// ExecDiffApplier returns an ApplyDiffFunc that pipes the diff into
// commandTemplate's stdin inside dir, analogous to "hg import --no-commit".
func ExecDiffApplier(commandTemplate string) ApplyDiffFunc {
	return func(dir, diff string) error {
		args := strings.Fields(commandTemplate)
		if len(args) == 0 {
			return fmt.Errorf("hooks: ExecDiffApplier: empty command template")
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Stdin = strings.NewReader(diff)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("hooks: apply diff in %s: %w: %s", dir, err, sanitizedOutput(out))
		}
		return nil
	}
}

// ExecCleaner returns a CleanFunc that runs commandTemplate inside dir,
// reverting any applied-but-uncommitted changes before a proposal workspace
// is released back to the pool, analogous to "hg revert --all --no-backup".
func ExecCleaner(commandTemplate string) CleanFunc {
	return func(dir string) error {
		args := strings.Fields(commandTemplate)
		if len(args) == 0 {
			return fmt.Errorf("hooks: ExecCleaner: empty command template")
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("hooks: clean %s: %w: %s", dir, err, sanitizedOutput(out))
		}
		return nil
	}
}

// sanitizedOutput redacts likely secret key names out of subprocess output
// before it's folded into an error message that a hook may log or mail.
func sanitizedOutput(out []byte) string {
	return stringutil.Truncate(stringutil.SanitizeErrorMessage(string(out)), maxSubprocessOutputInError)
}

// ExecLaunch returns a LaunchFunc that runs wrapperScript as a detached
// shell subprocess via pkg/procutil, redirecting its output to outputPath.
func ExecLaunch() LaunchFunc {
	return func(dir, outputPath, wrapperScript string) (int, error) {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		return procutil.StartDetached(shell, []string{"-c", wrapperScript}, dir, outputPath)
	}
}

func substituteAndSplit(template, csName string) []string {
	replaced := strings.ReplaceAll(template, "{name}", csName)
	return strings.Fields(replaced)
}
