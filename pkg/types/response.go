// Package types defines the JSON envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps successful payloads under a single "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-visible error body. Details is populated only for
// codes whose metadata allows it, such as quota denials carrying the consumed
// count and limit.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under a single "error" key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
