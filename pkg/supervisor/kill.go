package supervisor

import (
	"fmt"

	"github.com/gai-dev/gai/pkg/procutil"
)

// Kill terminates a workflow's process group. Per §4.8/§5's cancellation
// semantics the supervisor does not wait for the kill to take effect; the
// next completion/zombie sweep reconciles the resulting state.
func Kill(pid int) error {
	if err := procutil.KillGroup(pid); err != nil {
		return fmt.Errorf("supervisor: kill workflow pid %d: %w", pid, err)
	}
	return nil
}
