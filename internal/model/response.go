package model

// BatchResponse is the body returned when every record of a storage batch
// was persisted.
type BatchResponse struct {
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// RequestResponse is returned on a successful POST /process request.
type RequestResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ErrorResponse is returned for any failed request-path invocation.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Response messages.
const (
	MessageBatchComplete = "Processing complete"
	MessageProcessed     = "Processed"
	MessageChaosInjected = "Chaos injection: simulated failure"
)
