package main

import (
	"fmt"
	"os"

	"github.com/gai-dev/gai/pkg/console"
	"github.com/spf13/cobra"
)

// Build-time variable set by GoReleaser.
var version = "dev"

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:     "gai",
	Short:   "Continuous loop driver and status line for ChangeSpec-based project files",
	Version: version,
	Long: `gai drives the hook scheduler and CL-status sync loop over every
project file under a configured projects directory.

Common Tasks:
  gai loop                    # run the continuous hook/status loop
  gai loop --interval 60      # slow the status cycle down to one minute
  gai status --errors-only    # list every ChangeSpec currently in error
  gai work --status Mailed    # preview the ChangeSpecs the filter matches`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "execution", Title: "Execution Commands:"})

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output showing every cycle's updates")
	rootCmd.SetOut(os.Stderr)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n", console.FormatInfoMessage("gai version {{.Version}}")))

	loopCmd := NewLoopCommand()
	workCmd := NewWorkCommand()
	statusCmd := NewStatusCommand()
	loopCmd.GroupID = "execution"
	workCmd.GroupID = "execution"
	statusCmd.GroupID = "execution"

	rootCmd.AddCommand(loopCmd)
	rootCmd.AddCommand(workCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
