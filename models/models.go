// ABOUTME: Shared response envelopes for the JSON surface
// ABOUTME: Error and health payloads returned by handlers

package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse reports web client status
type HealthResponse struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	SessionStore string `json:"session_store"`
}
