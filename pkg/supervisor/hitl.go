package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// HITLRequest is the payload a paused workflow writes to hitl_request.json
// inside its artifacts directory while waiting for a human decision.
type HITLRequest struct {
	StepName  string `json:"step_name"`
	StepType  string `json:"step_type"`
	Output    any    `json:"output"`
	HasOutput bool   `json:"has_output"`
	// RequestID correlates this request with the response eventually
	// written for it. A workflow that doesn't set one gets one stamped in
	// by ReadHITLRequest.
	RequestID string `json:"request_id,omitempty"`
}

// HITLAction is the decision a human makes on a paused workflow step.
type HITLAction string

const (
	HITLApprove HITLAction = "approve"
	HITLEdit    HITLAction = "edit"
	HITLReject  HITLAction = "reject"
)

// HITLResponse is written to hitl_response.json by the core (at the UI's
// direction) to resume a paused workflow.
type HITLResponse struct {
	Action       HITLAction `json:"action"`
	Approved     bool       `json:"approved"`
	EditedOutput any        `json:"edited_output,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	// RequestID echoes the request's RequestID, so a workflow polling for
	// its response can tell a stale leftover response from a fresh one.
	RequestID string `json:"request_id,omitempty"`
}

// NewHITLResponse builds a response correlated to req via RequestID.
func NewHITLResponse(req HITLRequest, action HITLAction, approved bool) HITLResponse {
	return HITLResponse{Action: action, Approved: approved, RequestID: req.RequestID}
}

func requestPath(artifactsDir string) string  { return filepath.Join(artifactsDir, "hitl_request.json") }
func responsePath(artifactsDir string) string { return filepath.Join(artifactsDir, "hitl_response.json") }

// ReadHITLRequest reads and parses a paused workflow's pending request, if
// any. The second return is false when no request file exists yet.
func ReadHITLRequest(artifactsDir string) (HITLRequest, bool, error) {
	data, err := os.ReadFile(requestPath(artifactsDir))
	if os.IsNotExist(err) {
		return HITLRequest{}, false, nil
	}
	if err != nil {
		return HITLRequest{}, false, fmt.Errorf("supervisor: read hitl request: %w", err)
	}
	if err := ValidateHITLRequest(data); err != nil {
		return HITLRequest{}, false, err
	}
	var req HITLRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return HITLRequest{}, false, fmt.Errorf("supervisor: parse hitl request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return req, true, nil
}

// WriteHITLResponse writes resp to hitl_response.json, resuming the paused
// workflow on its next read. There is no timeout; the workflow waits
// indefinitely for this file to appear.
func WriteHITLResponse(artifactsDir string, resp HITLResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("supervisor: marshal hitl response: %w", err)
	}
	if err := ValidateHITLResponse(data); err != nil {
		return err
	}
	if err := os.WriteFile(responsePath(artifactsDir), data, 0o644); err != nil {
		return fmt.Errorf("supervisor: write hitl response: %w", err)
	}
	return nil
}

// HasPendingHITLResponse reports whether a response has already been
// written for a request, so pollers don't overwrite an answered prompt.
func HasPendingHITLResponse(artifactsDir string) bool {
	_, err := os.Stat(responsePath(artifactsDir))
	return err == nil
}
