package project

import (
	"fmt"
	"strings"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/suffix"
)

// FindChangeSpec locates a ChangeSpec by name, returning its index.
func FindChangeSpec(spec Spec, name string) (int, changespec.ChangeSpec, error) {
	for i, cs := range spec.ChangeSpecs {
		if cs.Name == name {
			return i, cs, nil
		}
	}
	var names []string
	for _, cs := range spec.ChangeSpecs {
		names = append(names, cs.Name)
	}
	available := "(none)"
	if len(names) > 0 {
		available = strings.Join(names, ", ")
	}
	return 0, changespec.ChangeSpec{}, fmt.Errorf("project: ChangeSpec %q not found. Available: %s", name, available)
}

// ReplaceChangeSpec returns a copy of spec with the ChangeSpec at index
// replaced by newCS. The original is left untouched.
func ReplaceChangeSpec(spec Spec, index int, newCS changespec.ChangeSpec) Spec {
	newList := make([]changespec.ChangeSpec, len(spec.ChangeSpecs))
	copy(newList, spec.ChangeSpecs)
	newList[index] = newCS
	spec.ChangeSpecs = newList
	return spec
}

// UpdateChangeSpecStatus returns a copy of spec with the named ChangeSpec's
// status updated.
func UpdateChangeSpecStatus(spec Spec, name, newStatus string) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Status = newStatus
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecCL returns a copy of spec with the named ChangeSpec's CL
// field updated.
func UpdateChangeSpecCL(spec Spec, name, newCL string) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.CL = newCL
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecParent returns a copy of spec with the named ChangeSpec's
// parent updated.
func UpdateChangeSpecParent(spec Spec, name, newParent string) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Parent = newParent
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecDescription returns a copy of spec with the named
// ChangeSpec's description updated.
func UpdateChangeSpecDescription(spec Spec, name, newDescription string) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Description = newDescription
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecHooks returns a copy of spec with the named ChangeSpec's
// hooks replaced.
func UpdateChangeSpecHooks(spec Spec, name string, hooks []changespec.HookEntry) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Hooks = hooks
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecComments returns a copy of spec with the named
// ChangeSpec's comments replaced.
func UpdateChangeSpecComments(spec Spec, name string, comments []changespec.CommentEntry) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Comments = comments
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateChangeSpecMentors returns a copy of spec with the named ChangeSpec's
// mentors replaced.
func UpdateChangeSpecMentors(spec Spec, name string, mentors []changespec.MentorEntry) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	cs.Mentors = mentors
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// AddChangeSpecCommitEntry returns a copy of spec with entry appended to the
// named ChangeSpec's commits.
func AddChangeSpecCommitEntry(spec Spec, name string, entry changespec.CommitEntry) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	commits := make([]changespec.CommitEntry, len(cs.Commits), len(cs.Commits)+1)
	copy(commits, cs.Commits)
	cs.Commits = append(commits, entry)
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// UpdateCommitEntrySuffix returns a copy of spec with the suffix updated on
// the CommitEntry matching entryID (by DisplayNumber) within the named
// ChangeSpec.
func UpdateCommitEntrySuffix(spec Spec, name, entryID, suffixText string, suffixType suffix.Type) (Spec, error) {
	idx, cs, err := FindChangeSpec(spec, name)
	if err != nil {
		return spec, err
	}
	if len(cs.Commits) == 0 {
		return spec, fmt.Errorf("project: ChangeSpec %q has no commits", name)
	}
	newCommits := make([]changespec.CommitEntry, len(cs.Commits))
	found := false
	var available []string
	for i, commit := range cs.Commits {
		available = append(available, commit.DisplayNumber())
		if commit.DisplayNumber() == entryID {
			commit.Suffix = suffixText
			commit.SuffixType = suffixType
			found = true
		}
		newCommits[i] = commit
	}
	if !found {
		return spec, fmt.Errorf("project: CommitEntry %q not found in %q. Available: %s", entryID, name, strings.Join(available, ", "))
	}
	cs.Commits = newCommits
	return ReplaceChangeSpec(spec, idx, cs), nil
}

// AddRunningClaim returns a copy of spec with claim appended to Running.
func AddRunningClaim(spec Spec, claim WorkspaceClaim) Spec {
	running := make([]WorkspaceClaim, len(spec.Running), len(spec.Running)+1)
	copy(running, spec.Running)
	spec.Running = append(running, claim)
	return spec
}

// RemoveRunningClaim returns a copy of spec with the matching claim(s)
// removed. Claims match by WorkspaceNum; if workflow is non-empty, it must
// also match. Returns spec unchanged if nothing matched.
func RemoveRunningClaim(spec Spec, workspaceNum int, workflow string) Spec {
	if len(spec.Running) == 0 {
		return spec
	}
	filtered := make([]WorkspaceClaim, 0, len(spec.Running))
	for _, c := range spec.Running {
		match := c.WorkspaceNum == workspaceNum && (workflow == "" || c.Workflow == workflow)
		if !match {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == len(spec.Running) {
		return spec
	}
	spec.Running = filtered
	return spec
}

// UpdateParentReferences returns a copy of spec with every ChangeSpec whose
// Parent equals oldName renamed to newName.
func UpdateParentReferences(spec Spec, oldName, newName string) Spec {
	if len(spec.ChangeSpecs) == 0 {
		return spec
	}
	changed := false
	newList := make([]changespec.ChangeSpec, len(spec.ChangeSpecs))
	for i, cs := range spec.ChangeSpecs {
		if cs.Parent == oldName {
			cs.Parent = newName
			changed = true
		}
		newList[i] = cs
	}
	if !changed {
		return spec
	}
	spec.ChangeSpecs = newList
	return spec
}
