package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/config"
	"github.com/gai-dev/gai/pkg/console"
	"github.com/gai-dev/gai/pkg/project"
	"github.com/gai-dev/gai/pkg/sliceutil"
)

// NewWorkCommand builds "gai work": a placeholder for the interactive
// ChangeSpec collaborator, which is a separate program out of scope for
// this repo (spec.md §1). It accepts the same filter flags the real
// collaborator would and previews which ChangeSpecs they'd match, so
// scripts invoking "gai work --status Mailed" don't need a flag-parsing
// change when the real program lands.
func NewWorkCommand() *cobra.Command {
	var statuses []string
	var projects []string

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Preview the ChangeSpecs the interactive collaborator would open",
		Long: `work is a placeholder: the interactive, full-screen collaborator over
ChangeSpecs lives in a separate program from this CLI. This command only
lists the ChangeSpecs its filters would hand to that collaborator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(console.FormatInfoMessage(
				"the interactive ChangeSpec collaborator is a separate program; gai work previews its filters only"))

			gaiHome, err := defaultGaiHome()
			if err != nil {
				return err
			}
			cfg, err := config.Load(gaiHome)
			if err != nil {
				return err
			}

			specs, err := project.LoadSpecs(cfg.ProjectsDir)
			if err != nil {
				return err
			}

			matched := 0
			for _, spec := range specs {
				projectName := strings.TrimSuffix(filepath.Base(spec.FilePath), filepath.Ext(spec.FilePath))
				if len(projects) > 0 && !sliceutil.Contains(projects, projectName) {
					continue
				}
				for _, cs := range spec.ChangeSpecs {
					if len(statuses) > 0 && !sliceutil.Contains(statuses, changespec.GetBaseStatus(cs.Status)) {
						continue
					}
					fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s: %s (%s)", projectName, cs.Name, cs.Status)))
					matched++
				}
			}
			if matched == 0 {
				fmt.Println(console.FormatInfoMessage("no ChangeSpecs matched the given filters"))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&statuses, "status", nil, "Filter ChangeSpecs by status (may be repeated)")
	cmd.Flags().StringArrayVar(&projects, "project", nil, "Filter by project name (may be repeated)")
	return cmd
}
