package api

import (
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope. Bump it
// only with a coordinated client release; clients key their parsers on it.
const EnvelopeVersion = 1

// APIEnvelope is the standard wrapper for success and simple error
// responses: {v, success, data} or {v, success, error}.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope schema version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

// APIErrorEnvelope is the wrapper for errors that carry a machine-readable
// code and structured details alongside the message.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope schema version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error context"`
}

// EnvelopeTransformer wraps every JSON response body in the versioned
// envelope. Raw bodies (file exports) bypass huma's serializer and are
// not wrapped.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch v.(type) {
	case APIEnvelope, APIErrorEnvelope:
		return v, nil
	}

	if err, ok := v.(error); ok {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code != "" || apiErr.Details != nil) {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}

		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	code, _ := strconv.Atoi(status)

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: code < 400,
		Data:    v,
	}, nil
}
