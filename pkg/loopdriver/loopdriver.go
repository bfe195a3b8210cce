// Package loopdriver implements the continuous loop (C12): two interleaved
// cadences over every ProjectSpec under a root directory. A frequent hook
// cycle (default 10s) runs the hook scheduler's completion/zombie/start/
// release sweeps plus the workflow supervisor's completion poll; a slower
// status cycle (default 300s) probes syncable ChangeSpecs for CL submission
// and pending-comment state, throttled by a shared sync cache.
package loopdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/gai-dev/gai/pkg/atomicfile"
	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/hooks"
	"github.com/gai-dev/gai/pkg/logger"
	"github.com/gai-dev/gai/pkg/project"
	"github.com/gai-dev/gai/pkg/supervisor"
	"github.com/gai-dev/gai/pkg/synccache"
	"github.com/gai-dev/gai/pkg/workspace"
)

var log = logger.New("gai:loopdriver")

// SyncableStatuses are the base statuses eligible for the status cycle's
// external submission/comment probes.
var SyncableStatuses = map[string]bool{
	"Mailed":            true,
	"Changes Requested": true,
}

// SubmissionProbe reports whether cs's CL has been submitted to its review
// system. A probe that can't reach that system should report false, matching
// the "assume not submitted" behavior of a failed external check.
type SubmissionProbe func(cs changespec.ChangeSpec) bool

// CommentsProbe reports whether cs's CL currently has unresolved review
// comments.
type CommentsProbe func(cs changespec.ChangeSpec) bool

// HookDeps bundles every external the hook scheduler needs, so Driver never
// touches a real clock, filesystem, or process directly.
type HookDeps struct {
	Clock                 hooks.Clock
	ReadOutputFile        func(path string) (string, error)
	Sync                  hooks.SyncFunc
	ApplyDiff             hooks.ApplyDiffFunc
	Launch                hooks.LaunchFunc
	Clean                 hooks.CleanFunc
	ZombieThreshold       time.Duration
	StaleFixHookThreshold time.Duration
}

// WorkflowDeps bundles the externals the C8 completion poll needs: reading
// a launched workflow's output file and, on a successful completion,
// applying/amending its accepted proposal. A zero-valued WorkflowDeps makes
// the poll a harmless no-op (ReadOutputFile is nil, so every poll finds
// nothing to read), which is the right behavior for a deployment that
// doesn't launch CRS/fix-hook/summarize-hook workflows at all.
type WorkflowDeps struct {
	ReadOutputFile func(path string) (string, error)
	ApplyDiff      supervisor.ApplyDiffFunc
	Amend          supervisor.AmendFunc
}

// Options configures a Driver's cadences and file roots.
type Options struct {
	RootDir        string
	GaiHome        string
	HookInterval   time.Duration
	StatusInterval time.Duration
}

// Driver runs the hook and status cycles against every ProjectSpec found
// under Options.RootDir.
type Driver struct {
	opts               Options
	cache              *synccache.Cache
	hookDeps           HookDeps
	workflowDeps       WorkflowDeps
	isSubmitted        SubmissionProbe
	hasPendingComments CommentsProbe

	// OnUpdate, if set, is called once per human-readable update produced by
	// either cycle (e.g. "my-cs: Status changed Mailed -> Submitted").
	OnUpdate func(message string)
}

// New builds a Driver. isSubmitted/hasPendingComments may be nil: a nil
// isSubmitted never moves a ChangeSpec to Submitted, a nil
// hasPendingComments never moves one between Mailed and Changes Requested,
// and with both nil the status cycle never changes a ChangeSpec's status.
func New(opts Options, cache *synccache.Cache, hookDeps HookDeps, workflowDeps WorkflowDeps, isSubmitted SubmissionProbe, hasPendingComments CommentsProbe) *Driver {
	return &Driver{
		opts:               opts,
		cache:              cache,
		hookDeps:           hookDeps,
		workflowDeps:       workflowDeps,
		isSubmitted:        isSubmitted,
		hasPendingComments: hasPendingComments,
	}
}

func (d *Driver) notify(msg string) {
	if d.OnUpdate != nil {
		d.OnUpdate(msg)
	}
}

func (d *Driver) writeSpec(spec project.Spec) error {
	return atomicfile.WriteFile(spec.FilePath, []byte(project.Serialize(spec)), 0o644)
}

// isParentSubmitted reports whether cs is a leaf: no parent, or a parent
// whose base status is exactly "Submitted". This is intentionally narrower
// than validate.IsParentReadyForMail, which also accepts "Mailed": the
// status cycle only wants to probe a CL once its parent has actually landed,
// not merely once the parent is itself ready to mail, per spec.md §4.12's
// leaf-CL definition. validate.IsParentReadyForMail answers a different
// question (can this ChangeSpec be marked READY TO MAIL right now?); only
// pkg/validate's own tests call it.
func isParentSubmitted(cs changespec.ChangeSpec, all []changespec.ChangeSpec) bool {
	if cs.Parent == "" {
		return true
	}
	for _, other := range all {
		if other.Name == cs.Parent {
			return changespec.GetBaseStatus(other.Status) == "Submitted"
		}
	}
	return true
}

// RunStatusCycle checks every syncable, leaf-ready ChangeSpec under RootDir
// for submission/comment transitions, persisting any that changed. When
// bypassLeafCache is true, leaf ChangeSpecs skip the sync-cache throttle
// (used for the very first cycle after startup).
func (d *Driver) RunStatusCycle(bypassLeafCache bool) ([]string, error) {
	specs, err := project.LoadSpecs(d.opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("loopdriver: status cycle: %w", err)
	}

	var all []changespec.ChangeSpec
	for _, spec := range specs {
		all = append(all, spec.ChangeSpecs...)
	}

	var messages []string
	for _, spec := range specs {
		changed := false
		newList := make([]changespec.ChangeSpec, len(spec.ChangeSpecs))
		copy(newList, spec.ChangeSpecs)

		for i, cs := range newList {
			bypass := bypassLeafCache && isParentSubmitted(cs, all)
			newCS, msg, err := d.checkStatus(cs, all, bypass)
			if err != nil {
				log.Printf("%s: status check failed: %v", cs.Name, err)
				continue
			}
			if msg != "" {
				changed = true
				full := fmt.Sprintf("%s: %s", cs.Name, msg)
				messages = append(messages, full)
				d.notify(full)
			}
			newList[i] = newCS
		}

		if changed {
			spec.ChangeSpecs = newList
			if err := d.writeSpec(spec); err != nil {
				return messages, err
			}
		}
	}
	return messages, nil
}

func (d *Driver) checkStatus(cs changespec.ChangeSpec, all []changespec.ChangeSpec, bypassCache bool) (changespec.ChangeSpec, string, error) {
	base := changespec.GetBaseStatus(cs.Status)
	if !SyncableStatuses[base] {
		return cs, "", nil
	}
	if !isParentSubmitted(cs, all) {
		return cs, "", nil
	}

	if !bypassCache && d.cache != nil && !d.cache.ShouldCheck(cs.Name, d.opts.StatusInterval) {
		return cs, "", nil
	}
	if d.cache != nil {
		d.cache.UpdateLastChecked(cs.Name)
	}

	if d.isSubmitted != nil && d.isSubmitted(cs) {
		old := cs.Status
		cs.Status = "Submitted"
		if d.cache != nil {
			d.cache.Clear(cs.Name)
		}
		return cs, fmt.Sprintf("Status changed %s -> Submitted", old), nil
	}

	if cs.Status == "Mailed" && d.hasPendingComments != nil && d.hasPendingComments(cs) {
		old := cs.Status
		cs.Status = "Changes Requested"
		return cs, fmt.Sprintf("Status changed %s -> Changes Requested", old), nil
	}

	if cs.Status == "Changes Requested" && d.hasPendingComments != nil && !d.hasPendingComments(cs) {
		old := cs.Status
		cs.Status = "Mailed"
		return cs, fmt.Sprintf("Status changed %s -> Mailed", old), nil
	}

	return cs, "", nil
}

// RunHooksCycle runs the hook scheduler's completion, zombie, stale-fix-hook,
// start, and release sweeps, plus the workflow supervisor's completion poll
// (C8), over every ChangeSpec that has hooks or comments defined, persisting
// any project file whose ChangeSpecs changed.
func (d *Driver) RunHooksCycle() ([]string, error) {
	specs, err := project.LoadSpecs(d.opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("loopdriver: hooks cycle: %w", err)
	}

	var messages []string
	for _, spec := range specs {
		changed := false
		newList := make([]changespec.ChangeSpec, len(spec.ChangeSpecs))
		copy(newList, spec.ChangeSpecs)

		for i, cs := range newList {
			if len(cs.Hooks) == 0 && len(cs.Comments) == 0 {
				continue
			}
			newCS, msgs, err := d.checkHooks(spec.FilePath, cs)
			if err != nil {
				log.Printf("%s: hooks check failed: %v", cs.Name, err)
				continue
			}
			if len(msgs) > 0 {
				changed = true
				for _, m := range msgs {
					full := fmt.Sprintf("%s: %s", cs.Name, m)
					messages = append(messages, full)
					d.notify(full)
				}
			}
			newList[i] = newCS
		}

		if changed {
			spec.ChangeSpecs = newList
			if err := d.writeSpec(spec); err != nil {
				return messages, err
			}
		}
	}
	return messages, nil
}

func (d *Driver) checkHooks(projectFile string, cs changespec.ChangeSpec) (changespec.ChangeSpec, []string, error) {
	var messages []string

	if cs.Status == "Reverted" || cs.Status == "Submitted" {
		return cs, messages, nil
	}

	now := d.hookDeps.Clock.Now()
	updatedHooks := make([]changespec.HookEntry, len(cs.Hooks))
	for i, h := range cs.Hooks {
		before, hadBefore := h.LatestStatusLine()

		h = hooks.CompletionSweep(d.opts.GaiHome, cs.Name, h, d.hookDeps.ReadOutputFile)
		h = hooks.ZombieSweep(h, now, d.hookDeps.ZombieThreshold)
		h = hooks.StaleFixHookSweep(h, now, d.hookDeps.StaleFixHookThreshold)

		after, hasAfter := h.LatestStatusLine()
		if hasAfter && (!hadBefore || before.Status != after.Status) {
			duration := ""
			if after.Duration != "" {
				duration = fmt.Sprintf(" (%s)", after.Duration)
			}
			messages = append(messages, fmt.Sprintf("Hook '%s' -> %s%s", h.DisplayCommand(), after.Status, duration))
		}
		updatedHooks[i] = h
	}
	cs.Hooks = updatedHooks

	var wfMessages []string
	var releases []supervisor.WorkflowRelease
	cs, wfMessages, releases = supervisor.CheckWorkflows(cs, supervisor.WorkflowDeps{
		GaiHome:        d.opts.GaiHome,
		ReadOutputFile: d.workflowDeps.ReadOutputFile,
		WorkspaceDir:   d.resolveWorkflowWorkspaceDir(projectFile, cs),
		ApplyDiff:      d.workflowDeps.ApplyDiff,
		Amend:          d.workflowDeps.Amend,
	})
	for _, m := range wfMessages {
		messages = append(messages, m)
	}
	for _, rel := range releases {
		tag := supervisor.WorkflowTag(rel.Kind, rel.AuxID)
		if _, err := workspace.ReleaseWorkspaceByWorkflow(projectFile, cs.CL, tag); err != nil {
			log.Printf("%s: release workflow claim %s: %v", cs.Name, tag, err)
		}
	}

	before := cs
	cs, err := hooks.StartSweep(d.opts.GaiHome, projectFile, cs, d.hookDeps.Clock, d.hookDeps.Sync, d.hookDeps.ApplyDiff, d.hookDeps.Launch)
	if err != nil {
		return cs, messages, err
	}
	for i := range cs.Hooks {
		if len(cs.Hooks[i].StatusLines) > len(before.Hooks[i].StatusLines) {
			messages = append(messages, fmt.Sprintf("Hook '%s' -> RUNNING", cs.Hooks[i].DisplayCommand()))
		}
	}

	if err := hooks.ReleaseSweep(d.opts.GaiHome, projectFile, cs, d.hookDeps.Clean); err != nil {
		return cs, messages, err
	}

	return cs, messages, nil
}

// resolveWorkflowWorkspaceDir looks up the workspace directory claimed for a
// given workflow kind/auxID pairing against cs's CL, by reconstructing the
// claim tag Launch would have recorded (supervisor.WorkflowTag) and
// matching it against the project file's current RUNNING claims.
func (d *Driver) resolveWorkflowWorkspaceDir(projectFile string, cs changespec.ChangeSpec) func(kind supervisor.Kind, auxID string) (string, bool) {
	return func(kind supervisor.Kind, auxID string) (string, bool) {
		claimed, err := workspace.GetClaimed(projectFile)
		if err != nil {
			return "", false
		}
		tag := supervisor.WorkflowTag(kind, auxID)
		for _, c := range claimed {
			if c.CLName == cs.CL && c.Workflow == tag {
				return workspace.WorkspaceDirectory(d.opts.GaiHome, cs.ProjectBasename(), c.WorkspaceNum), true
			}
		}
		return "", false
	}
}

// Run executes the continuous loop until ctx is cancelled (e.g. on SIGINT):
// an initial status cycle that bypasses the cache for leaf ChangeSpecs, then
// alternating hook-interval ticks, promoting to a full status cycle once
// StatusInterval has elapsed since the last one. It never kills any process
// the hook scheduler or workflow runner detached — cancellation only stops
// scheduling further cycles.
func (d *Driver) Run(ctx context.Context) error {
	if _, err := d.RunStatusCycle(true); err != nil {
		return err
	}

	ticker := time.NewTicker(d.opts.HookInterval)
	defer ticker.Stop()

	elapsed := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			elapsed += d.opts.HookInterval
			if elapsed >= d.opts.StatusInterval {
				elapsed = 0
				if _, err := d.RunStatusCycle(false); err != nil {
					return err
				}
				continue
			}
			if _, err := d.RunHooksCycle(); err != nil {
				return err
			}
		}
	}
}
