package processor

import (
	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/labreport"
)

// Response is the envelope returned to HTTP, MCP and CLI callers
type Response struct {
	IsSuccess bool        `json:"is_success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Envelope wraps extracted tests in a success response. Data is always a
// JSON array, empty when nothing was found.
func Envelope(tests []labreport.LabTest) *Response {
	if tests == nil {
		tests = []labreport.LabTest{}
	}
	return &Response{IsSuccess: true, Data: tests}
}

// ErrorEnvelope wraps a failure as a single human readable message
func ErrorEnvelope(err error) *Response {
	return &Response{IsSuccess: false, Error: ErrorMessage(err)}
}

// ErrorMessage prefers the message of a ProcessingError over its full chain
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if pe, ok := errors.AsProcessingError(err); ok {
		return pe.Message
	}
	return err.Error()
}
