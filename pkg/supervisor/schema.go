package supervisor

import (
	"github.com/gai-dev/gai/pkg/gaischema"
)

// hitlRequestSchemaJSON and hitlResponseSchemaJSON pin down the HITL
// rendezvous contract from §4.8, independent of whichever language wrote
// the file on the other end.
const hitlRequestSchemaJSON = `{
  "type": "object",
  "required": ["step_name", "step_type", "has_output"],
  "properties": {
    "step_name": {"type": "string"},
    "step_type": {"type": "string"},
    "output": {},
    "has_output": {"type": "boolean"},
    "request_id": {"type": "string"}
  }
}`

const hitlResponseSchemaJSON = `{
  "type": "object",
  "required": ["action", "approved"],
  "properties": {
    "action": {"enum": ["approve", "edit", "reject"]},
    "approved": {"type": "boolean"},
    "edited_output": {},
    "feedback": {"type": "string"},
    "request_id": {"type": "string"}
  }
}`

var (
	getRequestSchema  = gaischema.CompileOnce("hitl_request.json", hitlRequestSchemaJSON)
	getResponseSchema = gaischema.CompileOnce("hitl_response.json", hitlResponseSchemaJSON)
)

// ValidateHITLRequest validates raw request bytes against the HITL request
// contract before they're unmarshalled into a HITLRequest.
func ValidateHITLRequest(raw []byte) error {
	schema, err := getRequestSchema()
	if err != nil {
		return err
	}
	return gaischema.Validate(schema, raw)
}

// ValidateHITLResponse validates raw response bytes against the HITL
// response contract before they're written for a waiting workflow to read.
func ValidateHITLResponse(raw []byte) error {
	schema, err := getResponseSchema()
	if err != nil {
		return err
	}
	return gaischema.Validate(schema, raw)
}
