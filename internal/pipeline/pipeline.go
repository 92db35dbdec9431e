// Package pipeline sequences chaos injection, metadata resolution, identity
// derivation, record building, and persistence for both trigger shapes.
//
// The two pipelines surface failures differently. The upload pipeline returns
// a *RetryableError on the first failed record and abandons the rest of the
// batch, so the platform redelivers the entire batch. The request pipeline
// never returns an error; every failure becomes a 500 envelope because
// request-triggered invocations are not redelivered.
package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/storage"
	"github.com/sh3r4rd/nyx/internal/store"
)

// Injector decides whether the current event fails on purpose.
type Injector interface {
	ShouldInject() bool
}

// Deps are the collaborators shared by both pipelines.
type Deps struct {
	Chaos    Injector
	Resolver storage.MetadataResolver
	Store    store.RecordStore
	Metrics  *Metrics
	Logger   logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

type base struct {
	cfg     config.Config
	chaos   Injector
	store   store.RecordStore
	metrics *Metrics
	logger  logrus.FieldLogger
	now     func() time.Time
}

func newBase(cfg config.Config, d Deps) base {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return base{
		cfg:     cfg,
		chaos:   d.Chaos,
		store:   d.Store,
		metrics: d.Metrics,
		logger:  d.Logger,
		now:     func() time.Time { return now().UTC() },
	}
}
