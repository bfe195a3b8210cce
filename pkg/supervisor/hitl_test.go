package supervisor

import (
	"os"
	"testing"
)

func TestReadHITLRequestMissing(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := ReadHITLRequest(dir)
	if err != nil || ok {
		t.Fatalf("ReadHITLRequest = (_, %v, %v); want (_, false, nil)", ok, err)
	}
}

func TestReadAndWriteHITLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	requestJSON := `{"step_name": "review", "step_type": "agent", "output": {"summary": "done"}, "has_output": true}`
	if err := os.WriteFile(requestPath(dir), []byte(requestJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req, ok, err := ReadHITLRequest(dir)
	if err != nil || !ok {
		t.Fatalf("ReadHITLRequest = (_, %v, %v)", ok, err)
	}
	if req.StepName != "review" || !req.HasOutput {
		t.Errorf("req = %+v", req)
	}
	if req.RequestID == "" {
		t.Error("ReadHITLRequest should stamp a RequestID when the file doesn't carry one")
	}

	resp := NewHITLResponse(req, HITLApprove, true)
	if resp.RequestID != req.RequestID {
		t.Errorf("resp.RequestID = %q; want %q", resp.RequestID, req.RequestID)
	}
	if err := WriteHITLResponse(dir, resp); err != nil {
		t.Fatalf("WriteHITLResponse: %v", err)
	}
	if !HasPendingHITLResponse(dir) {
		t.Error("HasPendingHITLResponse should be true once a response is written")
	}
}

func TestReadHITLRequestPreservesExistingRequestID(t *testing.T) {
	dir := t.TempDir()
	requestJSON := `{"step_name": "review", "step_type": "agent", "has_output": false, "request_id": "fixed-id"}`
	if err := os.WriteFile(requestPath(dir), []byte(requestJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req, ok, err := ReadHITLRequest(dir)
	if err != nil || !ok {
		t.Fatalf("ReadHITLRequest = (_, %v, %v)", ok, err)
	}
	if req.RequestID != "fixed-id" {
		t.Errorf("RequestID = %q; want it preserved as %q", req.RequestID, "fixed-id")
	}
}

func TestReadHITLRequestRejectsInvalidShape(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(requestPath(dir), []byte(`{"step_name": "review"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := ReadHITLRequest(dir); err == nil {
		t.Error("ReadHITLRequest should reject a request missing required fields")
	}
}

func TestWriteHITLResponseRejectsInvalidAction(t *testing.T) {
	dir := t.TempDir()
	err := WriteHITLResponse(dir, HITLResponse{Action: "bogus", Approved: true})
	if err == nil {
		t.Error("WriteHITLResponse should reject an action outside approve/edit/reject")
	}
}
