package agents

// CollectWorkflowState builds a WorkflowAgent from a workflow_state.json
// file's already-parsed name and steps, keeping only steps that are still
// actively in flight (in_progress, waiting_hitl, or failed) as synthetic
// child agents, per spec.md §4.9.
func CollectWorkflowState(common Common, workflowName string, allSteps []WorkflowStep) WorkflowAgent {
	active := make([]WorkflowStep, 0, len(allSteps))
	for _, s := range allSteps {
		if isActiveStepStatus(s.Status) {
			active = append(active, s)
		}
	}
	return WorkflowAgent{Common: common, WorkflowName: workflowName, Steps: active}
}

func isActiveStepStatus(status string) bool {
	switch status {
	case "in_progress", "waiting_hitl", "failed":
		return true
	default:
		return false
	}
}
