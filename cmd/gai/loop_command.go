package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gai-dev/gai/pkg/config"
	"github.com/gai-dev/gai/pkg/console"
	"github.com/gai-dev/gai/pkg/hooks"
	"github.com/gai-dev/gai/pkg/loopdriver"
	"github.com/gai-dev/gai/pkg/supervisor"
	"github.com/gai-dev/gai/pkg/synccache"
	"github.com/gai-dev/gai/pkg/workspace"
)

// readOutputFile reads a hook's sentinel output file, matching
// hooks.CompletionSweep's readFile(path string) (string, error) signature.
func readOutputFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// defaultGaiHome returns ~/.gai, the conventional root for config, the sync
// cache, workspaces, and TUI identity sets.
func defaultGaiHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("gai: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gai"), nil
}

// NewLoopCommand builds "gai loop": runs the continuous hook/status loop
// described in pkg/loopdriver until interrupted.
func NewLoopCommand() *cobra.Command {
	var statusIntervalSec int
	var hookIntervalSec int

	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run the continuous hook scheduler and CL-status sync loop",
		Long: `loop repeatedly runs two cadences over every project file under the
configured projects directory: a frequent hook cycle (completion, zombie,
stale-fix-hook, start, and release sweeps, plus a poll for CRS/fix-hook/
summarize-hook workflow completions) and a slower status cycle
(CL-submission and pending-comment probes on syncable ChangeSpecs).

Press Ctrl+C to stop; in-flight detached subprocesses are left running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gaiHome, err := defaultGaiHome()
			if err != nil {
				return err
			}

			cfg, err := config.Load(gaiHome)
			if err != nil {
				return err
			}
			workspace.LockingEnabled = cfg.WorkspaceLockingEnabled

			if cmd.Flags().Changed("interval") {
				cfg.StatusInterval = time.Duration(statusIntervalSec) * time.Second
			}
			if cmd.Flags().Changed("hook-interval") {
				cfg.HookInterval = time.Duration(hookIntervalSec) * time.Second
			}

			if err := os.MkdirAll(cfg.ProjectsDir, 0o755); err != nil {
				return fmt.Errorf("gai: create projects directory %s: %w", cfg.ProjectsDir, err)
			}

			cache := synccache.Open(synccache.DefaultPath(gaiHome))

			deps := loopdriver.HookDeps{
				Clock: hooks.Clock{
					Now:   time.Now,
					Sleep: time.Sleep,
				},
				ReadOutputFile:        readOutputFile,
				ZombieThreshold:       cfg.ZombieThreshold,
				StaleFixHookThreshold: cfg.StaleFixHookThreshold,
			}
			if cfg.SyncCommand != "" {
				deps.Sync = hooks.ExecSync(cfg.SyncCommand)
			}
			if cfg.ApplyDiffCommand != "" {
				deps.ApplyDiff = hooks.ExecDiffApplier(cfg.ApplyDiffCommand)
			}
			if cfg.CleanCommand != "" {
				deps.Clean = hooks.ExecCleaner(cfg.CleanCommand)
			}
			deps.Launch = hooks.ExecLaunch()

			var workflowDeps loopdriver.WorkflowDeps
			workflowDeps.ReadOutputFile = readOutputFile
			if cfg.ApplyDiffCommand != "" {
				// AutoAcceptProposal's diff-apply step is the same operation
				// StartSweep's ApplyDiff performs: apply a saved diff into a
				// synced workspace without committing.
				workflowDeps.ApplyDiff = supervisor.ApplyDiffFunc(hooks.ExecDiffApplier(cfg.ApplyDiffCommand))
			}
			if cfg.AmendCommand != "" {
				workflowDeps.Amend = supervisor.ExecAmend(cfg.AmendCommand)
			}

			driver := loopdriver.New(loopdriver.Options{
				RootDir:        cfg.ProjectsDir,
				GaiHome:        gaiHome,
				HookInterval:   cfg.HookInterval,
				StatusInterval: cfg.StatusInterval,
			}, cache, deps, workflowDeps, submissionProbe(cfg), commentsProbe(cfg))

			if verboseFlag {
				driver.OnUpdate = func(message string) {
					fmt.Println(console.FormatInfoMessage(message))
				}
			}

			fmt.Println(console.FormatInfoMessage(fmt.Sprintf(
				"gai loop starting: projects=%s hook-interval=%s status-interval=%s",
				cfg.ProjectsDir, cfg.HookInterval, cfg.StatusInterval)))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := driver.Run(ctx); err != nil {
				return fmt.Errorf("gai: loop: %w", err)
			}
			fmt.Println(console.FormatSuccessMessage("gai loop stopped"))
			return nil
		},
	}

	cmd.Flags().IntVar(&statusIntervalSec, "interval", 300, "Status cycle interval in seconds (CL-submission / pending-comment probes)")
	cmd.Flags().IntVar(&hookIntervalSec, "hook-interval", 10, "Hook cycle interval in seconds (completion/zombie/start/release sweeps)")
	return cmd
}
