package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/logger"
)

var log = logger.New("gai:project")

// LoadSpecs scans rootDir for "*.gp" project files and parses each one.
// A file that fails to read is logged and skipped; parsing itself never
// fails outright (malformed lines are dropped, per the parser's policy).
func LoadSpecs(rootDir string) ([]Spec, error) {
	matches, err := filepath.Glob(filepath.Join(rootDir, "*.gp"))
	if err != nil {
		return nil, fmt.Errorf("project: glob %s: %w", rootDir, err)
	}

	specs := make([]Spec, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		specs = append(specs, ParseProjectFileText(string(data), path))
	}
	return specs, nil
}

// FindAllChangeSpecs returns every ChangeSpec across all project files under
// rootDir whose Status is in the given set. An empty set matches all
// statuses.
func FindAllChangeSpecs(rootDir string, statuses map[string]bool) ([]changespec.ChangeSpec, error) {
	specs, err := LoadSpecs(rootDir)
	if err != nil {
		return nil, err
	}
	var out []changespec.ChangeSpec
	for _, spec := range specs {
		for _, cs := range spec.ChangeSpecs {
			if len(statuses) == 0 || statuses[changespec.GetBaseStatus(cs.Status)] {
				out = append(out, cs)
			}
		}
	}
	return out, nil
}
