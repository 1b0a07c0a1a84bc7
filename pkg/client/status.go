package client

import (
	"encoding/json"
	"fmt"
)

// Job status values reported by the resume service.
const (
	JobProcessing = "processing"
	JobComplete   = "complete"
	JobError      = "error"
)

// decodeStatusPayload extracts the job status and error message from a
// status response body and returns the decoded document.
//
// The canonical document is flat: {"status": ..., "error": ...}. Older
// routes nest the job under a "resume" key; that shape is accepted as a
// compatibility shim and checked first, matching the precedence of the
// web client this replaces. Any status string other than "complete" or
// "error" means the job is still in flight.
func decodeStatusPayload(body []byte) (status, errMsg string, doc map[string]interface{}, err error) {
	if err = json.Unmarshal(body, &doc); err != nil {
		return "", "", nil, fmt.Errorf("malformed status payload: %w", err)
	}
	fields := doc
	if nested, ok := doc["resume"].(map[string]interface{}); ok {
		fields = nested
	}
	status, _ = fields["status"].(string)
	errMsg, _ = fields["error"].(string)
	return status, errMsg, doc, nil
}
