package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/event"
	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/record"
)

// RequestPipeline processes synthetic API requests.
type RequestPipeline struct {
	base
}

func NewRequestPipeline(cfg config.Config, d Deps) *RequestPipeline {
	return &RequestPipeline{base: newBase(cfg, d)}
}

// Process handles one request payload and always returns an envelope: 200
// with the record id, or 500 with the error message.
func (p *RequestPipeline) Process(ctx context.Context, payload []byte, requestID string) (resp events.APIGatewayProxyResponse) {
	start := p.now()
	log := p.logger.WithField("request_id", requestID)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("request processing panicked")
			p.metrics.recordFailure(model.SourceAPI, StagePanic)
			resp = ErrorEnvelope(fmt.Sprint(r))
		}
	}()

	if p.chaos.ShouldInject() {
		log.Warn("chaos injected failure")
		p.metrics.recordFailure(model.SourceAPI, StageChaos)
		return ErrorEnvelope(model.MessageChaosInjected)
	}

	req, err := event.DecodeRequest(payload)
	if err != nil {
		return p.fail(log, StageDecode, err)
	}

	now := p.now()
	id := record.RequestID(req, now)
	rec := record.FromRequest(id, req, record.Stamp{
		Environment: p.cfg.Environment,
		RequestID:   requestID,
		Now:         now,
	})

	if err := p.store.Put(ctx, rec); err != nil {
		return p.fail(log, StagePersist, err)
	}

	p.metrics.recordProcessed(model.SourceAPI, p.now().Sub(start).Seconds())
	log.WithFields(logrus.Fields{"pk": rec.PK, "filename": rec.Filename}).Info("processed request")
	return Envelope(http.StatusOK, model.RequestResponse{Message: model.MessageProcessed, ID: id})
}

func (p *RequestPipeline) fail(log logrus.FieldLogger, stage Stage, err error) events.APIGatewayProxyResponse {
	log.WithField("stage", stage).WithError(err).Error("error processing request")
	p.metrics.recordFailure(model.SourceAPI, stage)
	return ErrorEnvelope(err.Error())
}
