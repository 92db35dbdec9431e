package pipeline_test

import (
	"context"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/pipeline"
)

const eventTime = "2024-01-15T10:30:00Z"

func batch(keys ...string) []model.UploadEvent {
	uploads := make([]model.UploadEvent, 0, len(keys))
	for _, k := range keys {
		uploads = append(uploads, model.UploadEvent{Bucket: "uploads", Key: k, Size: 1024, EventTime: eventTime})
	}
	return uploads
}

func TestUploadPipelineProcessesBatch(t *testing.T) {
	h := newHarness()
	h.resolver.meta["a.txt"] = model.ObjectMetadata{ContentType: "text/plain", ETag: "abc123"}

	res, err := h.uploads.Process(context.Background(), batch("a.txt", "b.txt"), "req-1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"uploads/a.txt", "uploads/b.txt"}, h.resolver.calls)
	require.Len(t, h.store.items, 2)

	rec, ok := h.store.items["FILE#8053e4aaeca0ff0d|PROCESSED#2024-01-15T10:30:00Z"]
	require.True(t, ok, "record for a.txt not stored")
	assert.Equal(t, "2024-01-15", rec.GSI1PK)
	assert.Equal(t, int64(1024), *rec.Size)
	assert.Equal(t, "text/plain", rec.ContentType)
	assert.Equal(t, "abc123", rec.ETag)
	assert.Equal(t, "test", rec.Environment)
	assert.Equal(t, "req-1", rec.LambdaRequestID)

	snap := h.metrics.Snapshot()
	assert.Equal(t, 2, snap.ProcessedCount)
	assert.Zero(t, snap.ErrorCount)
}

func TestUploadPipelineEmptyBatch(t *testing.T) {
	h := newHarness()

	res, err := h.uploads.Process(context.Background(), nil, "req-1")
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, h.chaos.calls)
}

func TestUploadPipelineAbortsBatchOnFirstFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		stage pipeline.Stage
		cause error
	}{
		{
			name:  "metadata",
			setup: func(h *harness) { h.resolver.errs["b.txt"] = &smithy.GenericAPIError{Code: "NotFound"} },
			stage: pipeline.StageMetadata,
		},
		{
			name:  "chaos",
			setup: func(h *harness) { h.chaos.fireOn[1] = true },
			stage: pipeline.StageChaos,
			cause: pipeline.ErrChaosInjected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			res, err := h.uploads.Process(context.Background(), batch("a.txt", "b.txt", "c.txt"), "req-1")
			require.Error(t, err)

			var re *pipeline.RetryableError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.stage, re.Stage)
			assert.Equal(t, 1, re.Index)
			assert.True(t, pipeline.IsRetryable(err))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}

			assert.Equal(t, 1, res.Processed)
			assert.Equal(t, []string{err.Error()}, res.Errors)
			// no rollback of a.txt, c.txt never attempted
			assert.Len(t, h.store.items, 1)
			assert.NotContains(t, h.resolver.calls, "uploads/c.txt")
			assert.Equal(t, 2, h.chaos.calls)
			assert.Equal(t, 1, h.metrics.Snapshot().ErrorCount)
		})
	}
}

func TestUploadPipelineChaosSkipsBackends(t *testing.T) {
	h := newHarness()
	h.chaos.fireOn[0] = true

	_, err := h.uploads.Process(context.Background(), batch("a.txt"), "req-1")

	assert.ErrorIs(t, err, pipeline.ErrChaosInjected)
	assert.Empty(t, h.resolver.calls)
	assert.Zero(t, h.store.puts)
	assert.Equal(t, 1, h.metrics.Snapshot().ChaosCount)
}

func TestUploadPipelinePersistFailure(t *testing.T) {
	h := newHarness()
	h.store.err = errors.New("ValidationException")

	res, err := h.uploads.Process(context.Background(), batch("a.txt", "b.txt"), "req-1")

	var re *pipeline.RetryableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, pipeline.StagePersist, re.Stage)
	assert.Equal(t, 0, re.Index)
	assert.Zero(t, res.Processed)
	assert.Equal(t, 1, h.store.puts)
}

func TestUploadPipelineRedeliveryIsIdempotent(t *testing.T) {
	h := newHarness()
	h.chaos.fireOn[2] = true

	// first delivery fails on the third record after persisting two
	_, err := h.uploads.Process(context.Background(), batch("a.txt", "b.txt", "c.txt"), "req-1")
	require.Error(t, err)
	require.Len(t, h.store.items, 2)

	// redelivery of the whole batch converges without duplicates
	res, err := h.uploads.Process(context.Background(), batch("a.txt", "b.txt", "c.txt"), "req-2")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Len(t, h.store.items, 3)
	assert.Equal(t, 5, h.store.puts)
}
