package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/record"
	"github.com/sh3r4rd/nyx/internal/storage"
)

// BatchResult summarizes a storage batch. Errors holds the message of the
// record that aborted the batch, if any.
type BatchResult struct {
	Processed int
	Errors    []string
}

// UploadPipeline processes S3 notification batches.
type UploadPipeline struct {
	base
	resolver storage.MetadataResolver
}

func NewUploadPipeline(cfg config.Config, d Deps) *UploadPipeline {
	return &UploadPipeline{
		base:     newBase(cfg, d),
		resolver: d.Resolver,
	}
}

// Process handles uploads in order. The first failing record stops the batch
// and is returned as a *RetryableError; records before it stay persisted.
func (p *UploadPipeline) Process(ctx context.Context, uploads []model.UploadEvent, requestID string) (BatchResult, error) {
	res := BatchResult{Errors: []string{}}

	for i, evt := range uploads {
		if err := p.processOne(ctx, i, evt, requestID); err != nil {
			p.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"index":      i,
				"stage":      err.Stage,
			}).WithError(err.Err).Error("error processing record")
			p.metrics.recordFailure(model.SourceS3, err.Stage)
			res.Errors = append(res.Errors, err.Error())
			return res, err
		}
		res.Processed++
	}

	return res, nil
}

func (p *UploadPipeline) processOne(ctx context.Context, i int, evt model.UploadEvent, requestID string) *RetryableError {
	start := p.now()
	log := p.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"bucket":     evt.Bucket,
		"key":        evt.Key,
	})
	log.Info("processing record")

	if p.chaos.ShouldInject() {
		log.Warn("chaos injected failure")
		return &RetryableError{Stage: StageChaos, Index: i, Err: ErrChaosInjected}
	}

	meta, err := p.resolver.Resolve(ctx, evt.Bucket, evt.Key)
	if err != nil {
		return &RetryableError{Stage: StageMetadata, Index: i, Err: err}
	}

	rec := record.FromUpload(record.UploadID(evt), evt, meta, record.Stamp{
		Environment: p.cfg.Environment,
		RequestID:   requestID,
		Now:         p.now(),
	})

	if err := p.store.Put(ctx, rec); err != nil {
		return &RetryableError{Stage: StagePersist, Index: i, Err: err}
	}

	p.metrics.recordProcessed(model.SourceS3, p.now().Sub(start).Seconds())
	return nil
}
