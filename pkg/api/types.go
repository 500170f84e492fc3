package api

// ProfileResponse acknowledges a stored profile submission.
type ProfileResponse struct {
	Success bool `json:"success"`
}

// ProfileErrorResponse rejects a profile submission. Received echoes the
// fields as they were extracted, so an operator can see what the form
// actually sent without replaying traffic.
type ProfileErrorResponse struct {
	Error    string            `json:"error"`
	Received map[string]string `json:"received"`
}

// WebhookResponse acknowledges a payment-stream event.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ErrorResponse is a generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
