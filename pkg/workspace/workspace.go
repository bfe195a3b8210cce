// Package workspace implements the numbered workspace-slot claim registry:
// allocation and release of "axe" (1..99) and "loop" (100..199) workspace
// numbers, persisted in the RUNNING block of a ProjectSpec file.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gai-dev/gai/pkg/atomicfile"
	"github.com/gai-dev/gai/pkg/logger"
	"github.com/gai-dev/gai/pkg/project"
	"github.com/gofrs/flock"
)

var log = logger.New("gai:workspace")

// lockAcquireTimeout bounds how long withLock waits for the advisory flock
// before falling back to running fn without it.
const lockAcquireTimeout = 2 * time.Second

// lockRetryInterval is how often TryLockContext re-attempts the flock
// syscall while waiting out lockAcquireTimeout.
const lockRetryInterval = 50 * time.Millisecond

// Range bounds describe the axe and loop workspace number pools.
var (
	AxeRange  = Range{Min: 1, Max: 99}
	LoopRange = Range{Min: 100, Max: 199}
)

// LockingEnabled gates the advisory flock in withLock. It defaults to true
// and is normally set once at startup from config.Config.WorkspaceLockingEnabled;
// disable it only when a single gai process owns a given projects directory.
var LockingEnabled = true

// Range is an inclusive [Min, Max] span of workspace numbers.
type Range struct {
	Min, Max int
}

func (r Range) contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// lockPath returns the advisory lock file sitting alongside projectFile,
// used to serialize the read-validate-rewrite sequence across processes.
func lockPath(projectFile string) string {
	return projectFile + ".lock"
}

// withLock is best-effort: if the advisory flock can't be acquired within
// lockAcquireTimeout, fn still runs, falling back to the read-validate-write
// sequence's own optimistic-concurrency contract (ClaimWorkspace/
// ReleaseWorkspace re-read and re-check the claim list under the lock
// attempt, so a losing race still returns false rather than corrupting
// state) instead of blocking forever on a wedged or orphaned lock file.
func withLock(projectFile string, fn func() error) error {
	if !LockingEnabled {
		return fn()
	}
	fl := flock.New(lockPath(projectFile))
	ctx, cancel := context.WithTimeout(context.Background(), lockAcquireTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil || !locked {
		log.Printf("advisory lock for %s unavailable after %s, proceeding without it: %v", projectFile, lockAcquireTimeout, err)
		return fn()
	}
	defer fl.Unlock()
	return fn()
}

func readSpec(projectFile string) (project.Spec, error) {
	data, err := os.ReadFile(projectFile)
	if err != nil {
		return project.Spec{}, fmt.Errorf("workspace: read %s: %w", projectFile, err)
	}
	return project.ParseProjectFileText(string(data), projectFile), nil
}

func writeSpec(spec project.Spec) error {
	return atomicfile.WriteFile(spec.FilePath, []byte(project.Serialize(spec)), 0o644)
}

// GetClaimed parses and returns every WorkspaceClaim currently recorded in
// projectFile's RUNNING block.
func GetClaimed(projectFile string) ([]project.WorkspaceClaim, error) {
	spec, err := readSpec(projectFile)
	if err != nil {
		return nil, err
	}
	return spec.Running, nil
}

// FirstAvailable returns the lowest workspace number in r not present among
// the current claims. Callers must follow up with ClaimWorkspace; this
// function alone makes no reservation.
func FirstAvailable(projectFile string, r Range) (int, error) {
	claimed, err := GetClaimed(projectFile)
	if err != nil {
		return 0, err
	}
	taken := make(map[int]bool, len(claimed))
	for _, c := range claimed {
		taken[c.WorkspaceNum] = true
	}
	for n := r.Min; n <= r.Max; n++ {
		if !taken[n] {
			return n, nil
		}
	}
	return 0, fmt.Errorf("workspace: no workspace number available in [%d, %d]", r.Min, r.Max)
}

// ClaimWorkspace re-reads the RUNNING list under lock, verifies num is still
// free, appends the claim, and atomically rewrites the file. It returns
// false (with no error) if another process claimed num first.
func ClaimWorkspace(projectFile string, num int, workflow string, pid int, clName, artifactsTimestamp string) (bool, error) {
	claimed := false
	err := withLock(projectFile, func() error {
		spec, err := readSpec(projectFile)
		if err != nil {
			return err
		}
		for _, c := range spec.Running {
			if c.WorkspaceNum == num {
				return nil // still taken; claimed stays false
			}
		}
		spec = project.AddRunningClaim(spec, project.WorkspaceClaim{
			WorkspaceNum:       num,
			PID:                pid,
			Workflow:           workflow,
			CLName:             clName,
			ArtifactsTimestamp: artifactsTimestamp,
		})
		if err := writeSpec(spec); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// ReleaseWorkspace removes every claim matching num (and, if non-empty,
// workflow) from projectFile's RUNNING block.
func ReleaseWorkspace(projectFile string, num int, workflow string) (bool, error) {
	released := false
	err := withLock(projectFile, func() error {
		spec, err := readSpec(projectFile)
		if err != nil {
			return err
		}
		before := len(spec.Running)
		spec = project.RemoveRunningClaim(spec, num, workflow)
		if len(spec.Running) == before {
			return nil
		}
		released = true
		return writeSpec(spec)
	})
	return released, err
}

// ReleaseWorkspaceByWorkflow releases whichever claim matches clName and
// workflow exactly, regardless of its workspace number. Used by callers
// that know a workflow's claim tag (e.g. "loop(fix-hook)-<ts>") but not
// which number it was assigned, such as the workflow completion poll.
func ReleaseWorkspaceByWorkflow(projectFile, clName, workflow string) (bool, error) {
	released := false
	err := withLock(projectFile, func() error {
		spec, err := readSpec(projectFile)
		if err != nil {
			return err
		}
		num, found := 0, false
		for _, c := range spec.Running {
			if c.CLName == clName && c.Workflow == workflow {
				num, found = c.WorkspaceNum, true
				break
			}
		}
		if !found {
			return nil
		}
		spec = project.RemoveRunningClaim(spec, num, workflow)
		released = true
		return writeSpec(spec)
	})
	return released, err
}

// WorkspaceDirectory translates a project name and workspace number to an
// on-disk workspace path. Workspace 1 is the project's main workspace;
// every other number gets a numbered sibling directory.
func WorkspaceDirectory(gaiHome, projectName string, num int) string {
	if num == 1 {
		return filepath.Join(gaiHome, "workspaces", projectName)
	}
	return filepath.Join(gaiHome, "workspaces", fmt.Sprintf("%s-%d", projectName, num))
}
