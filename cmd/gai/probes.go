package main

import (
	"os/exec"
	"strings"

	"github.com/gai-dev/gai/pkg/changespec"
	"github.com/gai-dev/gai/pkg/config"
	"github.com/gai-dev/gai/pkg/loopdriver"
	"github.com/gai-dev/gai/pkg/logger"
)

var log = logger.New("gai:cmd")

// submissionProbe returns a loopdriver.SubmissionProbe backed by
// cfg.SubmissionCheckCommand. The concrete CL-submission check is external
// to this repo (spec.md §6 places it out of scope); this adapter shells out
// to whatever command the deployment configures, treating a zero exit
// status as "submitted" and anything else — including a missing command —
// as "not submitted", matching SubmissionProbe's documented failure mode.
func submissionProbe(cfg config.Config) loopdriver.SubmissionProbe {
	if cfg.SubmissionCheckCommand == "" {
		return nil
	}
	return func(cs changespec.ChangeSpec) bool {
		return runProbeCommand(cfg.SubmissionCheckCommand, cs.Name)
	}
}

// commentsProbe returns a loopdriver.CommentsProbe backed by
// cfg.PendingCommentsCommand, analogous to submissionProbe.
func commentsProbe(cfg config.Config) loopdriver.CommentsProbe {
	if cfg.PendingCommentsCommand == "" {
		return nil
	}
	return func(cs changespec.ChangeSpec) bool {
		return runProbeCommand(cfg.PendingCommentsCommand, cs.Name)
	}
}

func runProbeCommand(commandTemplate, csName string) bool {
	args := strings.Fields(strings.ReplaceAll(commandTemplate, "{name}", csName))
	if len(args) == 0 {
		return false
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Run(); err != nil {
		log.Printf("probe %q for %s: %v", commandTemplate, csName, err)
		return false
	}
	return true
}
