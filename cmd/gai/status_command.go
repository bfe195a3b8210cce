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
	"github.com/gai-dev/gai/pkg/validate"
)

// NewStatusCommand builds "gai status": a read-only summary over every
// ChangeSpec under the configured projects directory, built entirely from
// C11's read-only queries (pkg/validate) rather than re-deriving them.
func NewStatusCommand() *cobra.Command {
	var errorsOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize ChangeSpec status and in-flight runners across all projects",
		Long: `status loads every project file under the configured projects
directory and reports each ChangeSpec's status and whether it currently
carries an error suffix, then a global count of active hook/agent runners.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var all []changespec.ChangeSpec
			for _, spec := range specs {
				all = append(all, spec.ChangeSpecs...)
			}

			shown := 0
			for _, spec := range specs {
				projectName := strings.TrimSuffix(filepath.Base(spec.FilePath), filepath.Ext(spec.FilePath))
				for _, cs := range spec.ChangeSpecs {
					hasError := validate.HasAnyErrorSuffix(cs)
					if errorsOnly && !hasError {
						continue
					}
					marker := ""
					if hasError {
						marker = " [!]"
					}
					fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s: %s (%s)%s", projectName, cs.Name, cs.Status, marker)))
					shown++
				}
			}
			if shown == 0 {
				fmt.Println(console.FormatInfoMessage("no ChangeSpecs to report"))
			}

			fmt.Println(console.FormatInfoMessage(fmt.Sprintf(
				"runners: %d active (%d running hooks, %d running agents)",
				validate.CountAllRunnersGlobal(all), validate.CountRunningHooksGlobal(all), validate.CountRunningAgentsGlobal(all))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&errorsOnly, "errors-only", false, "Only list ChangeSpecs currently carrying an error suffix")
	return cmd
}
