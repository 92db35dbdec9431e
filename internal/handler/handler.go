// Package handler is the invocation boundary: it routes a raw payload to the
// matching pipeline and decides how each pipeline's outcome is surfaced.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/event"
	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/pipeline"
)

// Handler routes invocations to the upload and request pipelines.
type Handler struct {
	uploads  *pipeline.UploadPipeline
	requests *pipeline.RequestPipeline
	metrics  *pipeline.Metrics
	logger   logrus.FieldLogger
	now      func() time.Time
}

func New(
	uploads *pipeline.UploadPipeline,
	requests *pipeline.RequestPipeline,
	metrics *pipeline.Metrics,
	l logrus.FieldLogger,
) *Handler {
	return &Handler{
		uploads:  uploads,
		requests: requests,
		metrics:  metrics,
		logger:   l,
		now:      time.Now,
	}
}

// Handle is the Lambda entrypoint. A storage batch failure is returned as an
// error so the platform retries the batch and eventually dead-letters it; a
// request never returns an error.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (events.APIGatewayProxyResponse, error) {
	requestID := RequestID(ctx)
	kind := event.Classify(payload)

	log := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"kind":       kind.String(),
	})
	log.WithField("event", string(payload)).Info("received event")

	defer func() {
		log.WithField("metrics", h.metrics.Snapshot()).Info("invocation complete")
	}()

	if kind == event.KindRequest {
		resp := h.requests.Process(ctx, payload, requestID)
		log.WithField("status_code", resp.StatusCode).Info("response")
		return resp, nil
	}

	uploads, err := event.DecodeUploads(payload, h.now().UTC())
	if err != nil {
		log.WithError(err).Error("failed to decode notification batch")
		return events.APIGatewayProxyResponse{}, &pipeline.RetryableError{Stage: pipeline.StageDecode, Index: -1, Err: err}
	}

	res, err := h.uploads.Process(ctx, uploads, requestID)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	resp := pipeline.Envelope(http.StatusOK, model.BatchResponse{
		Message:   model.MessageBatchComplete,
		Processed: res.Processed,
		Errors:    res.Errors,
	})
	log.WithField("processed", res.Processed).Info("response")
	return resp, nil
}

// RequestID returns the Lambda request id carried by ctx, or "" outside the
// Lambda runtime.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}
