// Package event classifies raw invocation payloads and decodes them into the
// typed events the pipelines consume.
package event

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"

	"github.com/sh3r4rd/nyx/internal/model"
)

// Kind is the trigger shape of an invocation.
type Kind int

const (
	// KindRequest is any payload without a notification batch.
	KindRequest Kind = iota
	// KindUploadBatch is an S3 notification batch.
	KindUploadBatch
)

func (k Kind) String() string {
	switch k {
	case KindUploadBatch:
		return "upload_batch"
	default:
		return "request"
	}
}

const recordsField = "Records"

// Classify reports the trigger shape of payload. The presence of the
// top-level Records field is the only discriminator; anything else, including
// payloads that are not JSON objects, is a request.
func Classify(payload []byte) Kind {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return KindRequest
	}
	if _, ok := fields[recordsField]; ok {
		return KindUploadBatch
	}
	return KindRequest
}

// notification mirrors events.S3Event but keeps eventTime as delivered, so a
// malformed timestamp in one record cannot fail the whole batch.
type notification struct {
	Records []struct {
		EventTime string          `json:"eventTime"`
		S3        events.S3Entity `json:"s3"`
	} `json:"Records"`
}

// DecodeUploads decodes an S3 notification batch. An absent or empty event
// time defaults to now; a missing size defaults to zero.
func DecodeUploads(payload []byte, now time.Time) ([]model.UploadEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Wrap(err, "decode s3 event")
	}

	uploads := make([]model.UploadEvent, 0, len(n.Records))
	for _, r := range n.Records {
		eventTime := r.EventTime
		if eventTime == "" {
			eventTime = now.UTC().Format(model.TimeLayout)
		}
		uploads = append(uploads, model.UploadEvent{
			Bucket:    r.S3.Bucket.Name,
			Key:       objectKey(r.S3.Object.Key),
			Size:      r.S3.Object.Size,
			EventTime: eventTime,
		})
	}
	return uploads, nil
}

// DecodeRequest decodes an API Gateway proxy request and its JSON body. An
// empty body is an empty request.
func DecodeRequest(payload []byte) (model.GenericRequest, error) {
	var proxy events.APIGatewayProxyRequest
	if err := json.Unmarshal(payload, &proxy); err != nil {
		return model.GenericRequest{}, errors.Wrap(err, "decode request")
	}

	body := proxy.Body
	if proxy.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return model.GenericRequest{}, errors.Wrap(err, "decode base64 body")
		}
		body = string(raw)
	}

	var req model.GenericRequest
	if strings.TrimSpace(body) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return model.GenericRequest{}, errors.Wrap(err, "decode request body")
	}
	return req, nil
}

// objectKey undoes the form encoding S3 applies to keys in notifications.
func objectKey(raw string) string {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return key
}
