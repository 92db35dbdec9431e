package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/sh3r4rd/nyx/internal/model"
)

// Envelope renders body as the JSON response returned to the invoker.
func Envelope(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(model.ErrorResponse{Error: err.Error()})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

// ErrorEnvelope is the 500 response for a failed request-path invocation.
func ErrorEnvelope(msg string) events.APIGatewayProxyResponse {
	return Envelope(http.StatusInternalServerError, model.ErrorResponse{Error: msg})
}
