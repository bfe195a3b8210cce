package validate

import (
	"testing"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/suffix"
)

func TestHasAnyErrorSuffixExcludesReadyToMail(t *testing.T) {
	cs := changespec.ChangeSpec{Status: "Active" + changespec.ReadyToMailSuffix}
	if HasAnyErrorSuffix(cs) {
		t.Errorf("HasAnyErrorSuffix on a READY TO MAIL status = true; want false")
	}
	if !HasAnyStatusSuffix(cs) {
		t.Errorf("HasAnyStatusSuffix on a READY TO MAIL status = false; want true")
	}
}

func TestHasAnyErrorSuffixFromCommits(t *testing.T) {
	cs := changespec.ChangeSpec{
		Status:  "Active",
		Commits: []changespec.CommitEntry{{Number: 1, SuffixType: suffix.TypeError}},
	}
	if !HasAnyErrorSuffix(cs) {
		t.Errorf("HasAnyErrorSuffix = false; want true")
	}
}

func TestHasAnyErrorSuffixFromHooksAndComments(t *testing.T) {
	hookCS := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{
			Command:     "go test",
			StatusLines: []changespec.HookStatusLine{{CommitEntryNum: "1", SuffixType: suffix.TypeError}},
		}},
	}
	if !HasAnyErrorSuffix(hookCS) {
		t.Errorf("HasAnyErrorSuffix with a failed hook status line = false; want true")
	}

	commentCS := changespec.ChangeSpec{
		Comments: []changespec.CommentEntry{{Reviewer: "alice", SuffixType: suffix.TypeError}},
	}
	if !HasAnyErrorSuffix(commentCS) {
		t.Errorf("HasAnyErrorSuffix with an error comment = false; want true")
	}
}

func TestIsParentReadyForMailNoParent(t *testing.T) {
	cs := changespec.ChangeSpec{Name: "child"}
	if !IsParentReadyForMail(cs, nil) {
		t.Errorf("IsParentReadyForMail with no parent = false; want true")
	}
}

func TestIsParentReadyForMailParentSubmitted(t *testing.T) {
	cs := changespec.ChangeSpec{Name: "child", Parent: "parent"}
	all := []changespec.ChangeSpec{{Name: "parent", Status: "Submitted"}}
	if !IsParentReadyForMail(cs, all) {
		t.Errorf("IsParentReadyForMail with submitted parent = false; want true")
	}
}

func TestIsParentReadyForMailParentNotReady(t *testing.T) {
	cs := changespec.ChangeSpec{Name: "child", Parent: "parent"}
	all := []changespec.ChangeSpec{{Name: "parent", Status: "Active"}}
	if IsParentReadyForMail(cs, all) {
		t.Errorf("IsParentReadyForMail with active parent = true; want false")
	}
}

func TestIsParentReadyForMailParentMissingIsLenient(t *testing.T) {
	cs := changespec.ChangeSpec{Name: "child", Parent: "ghost"}
	if !IsParentReadyForMail(cs, nil) {
		t.Errorf("IsParentReadyForMail with an unresolvable parent = false; want true")
	}
}

func TestGetCurrentAndProposalEntryIDs(t *testing.T) {
	cs := changespec.ChangeSpec{
		Commits: []changespec.CommitEntry{
			{Number: 1},
			{Number: 2},
			{Number: 2, ProposalLetter: "a"},
			{Number: 2, ProposalLetter: "b"},
		},
	}
	got := GetCurrentAndProposalEntryIDs(cs)
	want := []string{"2", "2a", "2b"}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestGetCurrentAndProposalEntryIDsAllProposals(t *testing.T) {
	cs := changespec.ChangeSpec{
		Commits: []changespec.CommitEntry{{Number: 1, ProposalLetter: "a"}},
	}
	if got := GetCurrentAndProposalEntryIDs(cs); got != nil {
		t.Errorf("got %v; want nil", got)
	}
}

func TestAllHooksPassedForEntriesSkipsDollarPrefixForProposals(t *testing.T) {
	cs := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{
			Command: "$go test",
			StatusLines: []changespec.HookStatusLine{
				{CommitEntryNum: "2", Status: "PASSED"},
			},
		}},
	}
	if !AllHooksPassedForEntries(cs, []string{"2", "2a"}) {
		t.Errorf("AllHooksPassedForEntries = false; want true ($ hook skipped for proposal 2a)")
	}
}

func TestAllHooksPassedForEntriesMissingStatusLine(t *testing.T) {
	cs := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{Command: "go test"}},
	}
	if AllHooksPassedForEntries(cs, []string{"1"}) {
		t.Errorf("AllHooksPassedForEntries with no status line = true; want false")
	}
}

func TestAllHooksPassedForEntriesFailedStatus(t *testing.T) {
	cs := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{
			Command:     "go test",
			StatusLines: []changespec.HookStatusLine{{CommitEntryNum: "1", Status: "FAILED"}},
		}},
	}
	if AllHooksPassedForEntries(cs, []string{"1"}) {
		t.Errorf("AllHooksPassedForEntries with a FAILED line = true; want false")
	}
}

func TestHasAnyRunningAgentAndProcess(t *testing.T) {
	agentCS := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{
			StatusLines: []changespec.HookStatusLine{{SuffixType: suffix.TypeRunningAgent}},
		}},
	}
	if !HasAnyRunningAgent(agentCS) {
		t.Errorf("HasAnyRunningAgent = false; want true")
	}
	if HasAnyRunningProcess(agentCS) {
		t.Errorf("HasAnyRunningProcess on a running-agent line = true; want false")
	}

	processCS := changespec.ChangeSpec{
		Hooks: []changespec.HookEntry{{
			StatusLines: []changespec.HookStatusLine{{SuffixType: suffix.TypeRunningProcess}},
		}},
	}
	if !HasAnyRunningProcess(processCS) {
		t.Errorf("HasAnyRunningProcess = false; want true")
	}
	if HasAnyRunningAgent(processCS) {
		t.Errorf("HasAnyRunningAgent on a running-process line = true; want false")
	}
}

func TestGlobalCounters(t *testing.T) {
	all := []changespec.ChangeSpec{
		{
			Hooks: []changespec.HookEntry{{
				StatusLines: []changespec.HookStatusLine{
					{SuffixType: suffix.TypeRunningProcess},
					{SuffixType: suffix.TypeRunningAgent},
				},
			}},
			Comments: []changespec.CommentEntry{{SuffixType: suffix.TypeRunningAgent}},
			Mentors: []changespec.MentorEntry{{
				StatusLines: []changespec.MentorStatusLine{{SuffixType: suffix.TypeRunningAgent}},
			}},
		},
	}

	if got := CountRunningHooksGlobal(all); got != 1 {
		t.Errorf("CountRunningHooksGlobal = %d; want 1", got)
	}
	if got := CountRunningAgentsGlobal(all); got != 2 {
		t.Errorf("CountRunningAgentsGlobal = %d; want 2", got)
	}
	if got := CountAllRunnersGlobal(all); got != 4 {
		t.Errorf("CountAllRunnersGlobal = %d; want 4", got)
	}
}
