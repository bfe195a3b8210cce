package suffix

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType Type
		wantText string
	}{
		{"rejected proposal", "~!: some text", TypeRejectedProposal, "some text"},
		{"killed agent", "~@: claude-260730_120000", TypeKilledAgent, "claude-260730_120000"},
		{"killed process", "~$: 12345", TypeKilledProcess, "12345"},
		{"pending dead process", "?$: 12345", TypePendingDeadProc, "12345"},
		{"error", "!: Hook Command Failed", TypeError, "Hook Command Failed"},
		{"running agent with text", "@: claude-12345-260730_120000", TypeRunningAgent, "claude-12345-260730_120000"},
		{"running agent bare", "@", TypeRunningAgent, ""},
		{"running process", "$: 12345", TypeRunningProcess, "12345"},
		{"summarize complete with text", "%: done", TypeSummarizeDone, "done"},
		{"summarize complete bare", "%", TypeSummarizeDone, ""},
		{"legacy tilde", "~: some note", TypePlain, "some note"},
		{"plain unprefixed", "just text", TypePlain, "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.Type != tt.wantType {
				t.Errorf("Parse(%q).Type = %q; want %q", tt.raw, got.Type, tt.wantType)
			}
			if got.Text != tt.wantText {
				t.Errorf("Parse(%q).Text = %q; want %q", tt.raw, got.Text, tt.wantText)
			}
		})
	}
}

func TestParsePrefixOrdering(t *testing.T) {
	// "~!:" must win over the shorter "~:" prefix it contains.
	got := Parse("~!: rejected")
	if got.Type != TypeRejectedProposal {
		t.Errorf("Parse(%q).Type = %q; want %q (prefix ordering regression)", "~!: rejected", got.Type, TypeRejectedProposal)
	}
}

func TestEmitRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		text string
	}{
		{"rejected proposal", TypeRejectedProposal, "some text"},
		{"killed agent", TypeKilledAgent, "claude-260730_120000"},
		{"killed process", TypeKilledProcess, "12345"},
		{"pending dead process", TypePendingDeadProc, "12345"},
		{"error", TypeError, "Hook Command Failed"},
		{"running agent with text", TypeRunningAgent, "claude-12345-260730_120000"},
		{"running process", TypeRunningProcess, "12345"},
		{"summarize complete", TypeSummarizeDone, "done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Emit(tt.typ, tt.text)
			got := Parse(raw)
			if got.Type != tt.typ || got.Text != tt.text {
				t.Errorf("round trip failed: Emit(%q, %q) = %q; Parse gave (%q, %q)", tt.typ, tt.text, raw, got.Type, got.Text)
			}
		})
	}
}

func TestEmitBareTokens(t *testing.T) {
	if got := Emit(TypeRunningAgent, ""); got != "@" {
		t.Errorf("Emit(TypeRunningAgent, \"\") = %q; want \"@\"", got)
	}
	if got := Emit(TypeSummarizeDone, ""); got != "%" {
		t.Errorf("Emit(TypeSummarizeDone, \"\") = %q; want \"%%\"", got)
	}
}

func TestParseClassifiesLegacySuffixes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType Type
	}{
		{"legacy agent+pid+timestamp", "claude-12345-260730_120000", TypeRunningAgent},
		{"legacy agent+timestamp (no pid)", "claude-260730_120000", TypeRunningAgent},
		{"legacy bare timestamp", "260730_120000", TypeRunningAgent},
		{"legacy bare 12-digit timestamp", "260730120000", TypeRunningAgent},
		{"legacy bare pid", "12345", TypeRunningProcess},
		{"unrecognized shape falls to plain", "some-note-here", TypePlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.Type != tt.wantType {
				t.Errorf("Parse(%q).Type = %q; want %q", tt.raw, got.Type, tt.wantType)
			}
			if got.Text != tt.raw {
				t.Errorf("Parse(%q).Text = %q; want raw text preserved %q", tt.raw, got.Text, tt.raw)
			}
		})
	}
}

func TestIsKnownErrorMessage(t *testing.T) {
	for _, msg := range []string{"ZOMBIE", "Hook Command Failed", "Unresolved Critique Comments"} {
		if !IsKnownErrorMessage(msg) {
			t.Errorf("IsKnownErrorMessage(%q) = false; want true", msg)
		}
	}
	if IsKnownErrorMessage("some other error") {
		t.Error("IsKnownErrorMessage(\"some other error\") = true; want false")
	}
}
