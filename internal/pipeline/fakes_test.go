package pipeline_test

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/logging"
	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/pipeline"
)

// scriptedChaos fires on the listed call numbers (0-based).
type scriptedChaos struct {
	fireOn map[int]bool
	calls  int
}

func (c *scriptedChaos) ShouldInject() bool {
	n := c.calls
	c.calls++
	return c.fireOn[n]
}

type fakeResolver struct {
	meta  map[string]model.ObjectMetadata
	errs  map[string]error
	calls []string
}

func (r *fakeResolver) Resolve(_ context.Context, bucket, key string) (model.ObjectMetadata, error) {
	r.calls = append(r.calls, bucket+"/"+key)
	if err := r.errs[key]; err != nil {
		return model.ObjectMetadata{}, err
	}
	return r.meta[key], nil
}

// memStore mimics create-or-replace semantics keyed by (pk, sk).
type memStore struct {
	items map[string]model.Record
	puts  int
	err   error
	panic bool
}

func newMemStore() *memStore {
	return &memStore{items: map[string]model.Record{}}
}

func (s *memStore) Put(_ context.Context, rec model.Record) error {
	s.puts++
	if s.panic {
		panic("store exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.items[rec.PK+"|"+rec.SK] = rec
	return nil
}

var fixedNow = time.Date(2024, 1, 15, 10, 30, 5, 0, time.UTC)

type harness struct {
	chaos    *scriptedChaos
	resolver *fakeResolver
	store    *memStore
	metrics  *pipeline.Metrics
	uploads  *pipeline.UploadPipeline
	requests *pipeline.RequestPipeline
	clock    time.Time
}

func newHarness() *harness {
	return newHarnessWith(prometheus.NewRegistry())
}

func newHarnessWith(reg prometheus.Registerer) *harness {
	h := &harness{
		chaos: &scriptedChaos{fireOn: map[int]bool{}},
		resolver: &fakeResolver{
			meta: map[string]model.ObjectMetadata{},
			errs: map[string]error{},
		},
		store:   newMemStore(),
		metrics: pipeline.NewMetrics(reg),
		clock:   fixedNow,
	}

	cfg := config.Config{TableName: "nyx-test-records", Environment: "test", ChaosEnabled: true, ChaosRate: 0.5}
	deps := pipeline.Deps{
		Chaos:    h.chaos,
		Resolver: h.resolver,
		Store:    h.store,
		Metrics:  h.metrics,
		Logger:   logging.Discard(),
		Now:      func() time.Time { return h.clock },
	}
	h.uploads = pipeline.NewUploadPipeline(cfg, deps)
	h.requests = pipeline.NewRequestPipeline(cfg, deps)
	return h
}
