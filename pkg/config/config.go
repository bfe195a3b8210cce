// Package config loads the user-level settings that shape the loop driver
// and workspace claim registry: where project files live, how often each
// cadence runs, and whether advisory file locking is enabled. The teacher
// has no analogous layer (it reads entirely from repo-local workflow
// frontmatter), so this package is modeled on its general config idiom —
// a single YAML-backed struct with defaults applied when the file, or a
// field within it, is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/gai-dev/gai/pkg/logger"
)

var log = logger.New("gai:config")

// FileName is the conventional config file name under GaiHome.
const FileName = "config.yaml"

// Config holds every user-tunable setting. Zero-value fields are replaced
// by Defaults() after loading, so a partial YAML file (or no file at all)
// is always usable.
type Config struct {
	// ProjectsDir is the root directory FindAllChangeSpecs and LoadSpecs
	// scan for "*.gp" project files. Defaults to "<GaiHome>/projects".
	ProjectsDir string `yaml:"projects_dir"`

	// HookInterval is how often the loop driver's hook cycle runs.
	HookInterval time.Duration `yaml:"hook_interval"`
	// StatusInterval is how often the loop driver's status cycle runs.
	StatusInterval time.Duration `yaml:"status_interval"`
	// ZombieThreshold is how long a hook status line may sit RUNNING,
	// measured from its own timestamp, before the zombie sweep marks it KILLED.
	ZombieThreshold time.Duration `yaml:"zombie_threshold"`
	// StaleFixHookThreshold is how long a fix-hook agent may run before the
	// stale-fix-hook sweep rewrites its running_agent suffix to an error suffix.
	StaleFixHookThreshold time.Duration `yaml:"stale_fix_hook_threshold"`

	// WorkspaceLockingEnabled gates the advisory flock around workspace
	// claim read-validate-write sequences. Disabling it is only safe when a
	// single gai process touches a given projects directory at a time.
	WorkspaceLockingEnabled bool `yaml:"workspace_locking_enabled"`

	// SyncCommand is the command template ExecSync runs to update a claimed
	// workspace to a ChangeSpec's tip ("{name}" is substituted with the
	// ChangeSpec name). Empty disables syncing (StartSweep's Sync hook is
	// then a no-op), which is only appropriate for read-only dry runs.
	SyncCommand string `yaml:"sync_command"`
	// ApplyDiffCommand is the command template ExecDiffApplier pipes a
	// proposal's diff into via stdin. The workflow supervisor's completion
	// poll reuses this same template to apply an auto-accepted CRS/fix-hook
	// proposal's diff, since the operation is identical: apply a saved diff
	// into a synced workspace without committing.
	ApplyDiffCommand string `yaml:"apply_diff_command"`
	// CleanCommand is the command template ExecCleaner runs inside a
	// proposal workspace before it's released back to the pool, reverting
	// the applied-but-uncommitted diff. Empty disables cleaning, so a reused
	// proposal workspace may carry forward another proposal's diff.
	CleanCommand string `yaml:"clean_command"`
	// AmendCommand is the command template supervisor.ExecAmend runs, with
	// the proposal's commit note appended as its final argument, to amend an
	// auto-accepted proposal's applied diff into a real commit.
	AmendCommand string `yaml:"amend_command"`
	// SubmissionCheckCommand is the command template the status cycle runs
	// to check whether a ChangeSpec's CL has been submitted upstream
	// ("{name}" substituted). A zero exit status means submitted. Empty
	// means the status cycle never transitions a ChangeSpec out of Mailed.
	SubmissionCheckCommand string `yaml:"submission_check_command"`
	// PendingCommentsCommand is the command template the status cycle runs
	// to check whether a ChangeSpec's CL has unresolved review comments. A
	// zero exit status means comments are pending.
	PendingCommentsCommand string `yaml:"pending_comments_command"`
}

// Defaults returns the built-in settings applied whenever a Config (or one
// of its fields) wasn't supplied by the user's config file.
func Defaults(gaiHome string) Config {
	return Config{
		ProjectsDir:             filepath.Join(gaiHome, "projects"),
		HookInterval:            10 * time.Second,
		StatusInterval:          300 * time.Second,
		ZombieThreshold:         2 * time.Hour,
		StaleFixHookThreshold:   time.Hour,
		WorkspaceLockingEnabled: true,
	}
}

// Path returns the conventional config file location under gaiHome.
func Path(gaiHome string) string {
	return filepath.Join(gaiHome, FileName)
}

// Load reads the config file at Path(gaiHome), falling back to defaults for
// a missing file and for any field the file leaves unset. A malformed file
// is reported as an error rather than silently ignored, since config.yaml
// (unlike a .gp project file) has no recovery-in-place convention.
func Load(gaiHome string) (Config, error) {
	cfg := Defaults(gaiHome)

	data, err := os.ReadFile(Path(gaiHome))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", Path(gaiHome), err)
	}

	var loaded rawConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", Path(gaiHome), err)
	}
	loaded.applyTo(&cfg)
	log.Printf("loaded config from %s", Path(gaiHome))
	return cfg, nil
}

// rawConfig mirrors Config but with duration fields as strings (YAML has
// no native duration type) and everything optional via pointers, so a
// present-but-zero value in the file is distinguishable from an absent one.
type rawConfig struct {
	ProjectsDir             *string `yaml:"projects_dir"`
	HookInterval            *string `yaml:"hook_interval"`
	StatusInterval          *string `yaml:"status_interval"`
	ZombieThreshold         *string `yaml:"zombie_threshold"`
	StaleFixHookThreshold   *string `yaml:"stale_fix_hook_threshold"`
	WorkspaceLockingEnabled *bool   `yaml:"workspace_locking_enabled"`
	SyncCommand             *string `yaml:"sync_command"`
	ApplyDiffCommand        *string `yaml:"apply_diff_command"`
	CleanCommand            *string `yaml:"clean_command"`
	AmendCommand            *string `yaml:"amend_command"`
	SubmissionCheckCommand  *string `yaml:"submission_check_command"`
	PendingCommentsCommand  *string `yaml:"pending_comments_command"`
}

func (r rawConfig) applyTo(cfg *Config) {
	if r.ProjectsDir != nil {
		cfg.ProjectsDir = *r.ProjectsDir
	}
	setDuration(&cfg.HookInterval, r.HookInterval)
	setDuration(&cfg.StatusInterval, r.StatusInterval)
	setDuration(&cfg.ZombieThreshold, r.ZombieThreshold)
	setDuration(&cfg.StaleFixHookThreshold, r.StaleFixHookThreshold)
	if r.WorkspaceLockingEnabled != nil {
		cfg.WorkspaceLockingEnabled = *r.WorkspaceLockingEnabled
	}
	if r.SyncCommand != nil {
		cfg.SyncCommand = *r.SyncCommand
	}
	if r.ApplyDiffCommand != nil {
		cfg.ApplyDiffCommand = *r.ApplyDiffCommand
	}
	if r.CleanCommand != nil {
		cfg.CleanCommand = *r.CleanCommand
	}
	if r.AmendCommand != nil {
		cfg.AmendCommand = *r.AmendCommand
	}
	if r.SubmissionCheckCommand != nil {
		cfg.SubmissionCheckCommand = *r.SubmissionCheckCommand
	}
	if r.PendingCommentsCommand != nil {
		cfg.PendingCommentsCommand = *r.PendingCommentsCommand
	}
}

func setDuration(dst *time.Duration, raw *string) {
	if raw == nil {
		return
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		log.Printf("ignoring invalid duration %q: %v", *raw, err)
		return
	}
	*dst = d
}
