package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gai-dev/gai/pkg/testutil"
)

const sampleProjectForStatus = `BUG: b/1
RUNNING:

## ChangeSpec
NAME: my-cs
DESCRIPTION:
  Do the thing.
STATUS: Mailed

## ChangeSpec
NAME: my-cs-err
DESCRIPTION:
  Do another thing.
STATUS: Mailed - (!: Unresolved Critique Comments)
`

func withGaiHomeStatus(t *testing.T) string {
	t.Helper()
	home := testutil.TempDir(t, "gai-home-status")
	projectsDir := filepath.Join(home, "projects")
	if err := os.MkdirAll(filepath.Join(home, ".gai"), 0o755); err != nil {
		t.Fatalf("MkdirAll .gai: %v", err)
	}
	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll projects: %v", err)
	}
	cfgYAML := "projects_dir: " + projectsDir + "\n"
	if err := os.WriteFile(filepath.Join(home, ".gai", "config.yaml"), []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("WriteFile config.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectsDir, "sample.gp"), []byte(sampleProjectForStatus), 0o644); err != nil {
		t.Fatalf("WriteFile sample.gp: %v", err)
	}
	return home
}

func runStatusCommandCapturingStdout(t *testing.T, args ...string) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stdout = w

	cmd := NewStatusCommand()
	cmd.SetArgs(args)
	runErr := cmd.Execute()

	w.Close()
	os.Stdout = oldStdout

	var buf strings.Builder
	io.Copy(&buf, r)

	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	return buf.String()
}

func TestStatusCommandListsChangeSpecsAndRunnerCount(t *testing.T) {
	t.Setenv("HOME", withGaiHomeStatus(t))

	out := runStatusCommandCapturingStdout(t)
	if !strings.Contains(out, "my-cs") {
		t.Errorf("output = %q; want it to mention my-cs", out)
	}
	if !strings.Contains(out, "runners:") {
		t.Errorf("output = %q; want a runners summary line", out)
	}
}

func TestStatusCommandErrorsOnlyFiltersCleanChangeSpecs(t *testing.T) {
	t.Setenv("HOME", withGaiHomeStatus(t))

	out := runStatusCommandCapturingStdout(t, "--errors-only")
	if !strings.Contains(out, "my-cs-err") {
		t.Errorf("output = %q; want my-cs-err, which carries an error suffix", out)
	}
	if strings.Contains(out, "sample: my-cs (Mailed)\n") {
		t.Errorf("output = %q; my-cs carries no error suffix and should be filtered out", out)
	}
}
