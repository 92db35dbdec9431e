// Package loadtest drives staged virtual-user traffic against the /process
// endpoint and reports how often chaos surfaced as a 500.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sh3r4rd/nyx/internal/model"
)

// Stage ramps the number of virtual users linearly to Target over Duration.
type Stage struct {
	Duration time.Duration
	Target   int
}

// DefaultStages ramps up to 5 users, holds around 10, then drains.
var DefaultStages = []Stage{
	{Duration: 10 * time.Second, Target: 5},
	{Duration: 30 * time.Second, Target: 10},
	{Duration: 10 * time.Second, Target: 0},
}

// Thresholds are the pass criteria of a run; reaching either limit fails it.
type Thresholds struct {
	MaxFailureRate float64
	MaxP95         time.Duration
}

// DefaultThresholds tolerate the failure rate expected at a 0.5 chaos rate.
var DefaultThresholds = Thresholds{
	MaxFailureRate: 0.6,
	MaxP95:         2 * time.Second,
}

// Options configure Run. Client, Logger and Pause have defaults.
type Options struct {
	Endpoint   string
	Stages     []Stage
	Pause      time.Duration
	Thresholds Thresholds
	Client     *http.Client
	Logger     logrus.FieldLogger
}

// Report aggregates every completed request.
type Report struct {
	Requests      int
	OK            int
	ChaosFailures int
	OtherFailures int
	FailureRate   float64
	P95           time.Duration
}

// Violations lists every threshold the report breaks.
func (r Report) Violations(th Thresholds) []string {
	var out []string
	if r.FailureRate >= th.MaxFailureRate {
		out = append(out, fmt.Sprintf("failure rate %.2f >= %.2f", r.FailureRate, th.MaxFailureRate))
	}
	if r.P95 >= th.MaxP95 {
		out = append(out, fmt.Sprintf("p95 latency %v >= %v", r.P95, th.MaxP95))
	}
	return out
}

type collector struct {
	mu        sync.Mutex
	latencies []time.Duration
	report    Report
}

func (c *collector) add(status int, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report.Requests++
	c.latencies = append(c.latencies, latency)
	switch {
	case status == http.StatusOK:
		c.report.OK++
	case status == http.StatusInternalServerError:
		c.report.ChaosFailures++
	default:
		c.report.OtherFailures++
	}
}

func (c *collector) finish() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.report
	if r.Requests > 0 {
		r.FailureRate = float64(r.ChaosFailures+r.OtherFailures) / float64(r.Requests)
	}
	r.P95 = Percentile(c.latencies, 0.95)
	return r
}

// Run executes every stage in order and returns the aggregated report.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Endpoint == "" {
		return Report{}, errors.New("endpoint is required")
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Pause <= 0 {
		opts.Pause = 500 * time.Millisecond
	}
	url := strings.TrimRight(opts.Endpoint, "/") + "/process"

	c := &collector{}
	prev := 0
	for i, st := range opts.Stages {
		opts.Logger.WithFields(logrus.Fields{"stage": i, "duration": st.Duration, "target": st.Target}).Info("starting stage")
		if err := runStage(ctx, opts, url, prev, st, c); err != nil {
			return c.finish(), err
		}
		prev = st.Target
	}
	return c.finish(), nil
}

func runStage(ctx context.Context, opts Options, url string, from int, st Stage, c *collector) error {
	stageCtx, cancel := context.WithTimeout(ctx, st.Duration)
	defer cancel()

	start := time.Now()
	active := func() float64 {
		frac := math.Min(float64(time.Since(start))/float64(st.Duration), 1)
		return float64(from) + float64(st.Target-from)*frac
	}

	users := max(from, st.Target)
	if users == 0 {
		<-stageCtx.Done()
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(stageCtx)
	for vu := 1; vu <= users; vu++ {
		g.Go(func() error {
			for {
				if float64(vu) <= active() {
					iterate(gctx, opts.Client, opts.Logger, url, c)
				}
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(opts.Pause):
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// iterate sends one request. Requests that cannot be built count as failures
// with zero latency.
func iterate(ctx context.Context, client *http.Client, l logrus.FieldLogger, url string, c *collector) {
	body, err := json.Marshal(model.GenericRequest{
		Filename: fmt.Sprintf("load-%s.txt", uuid.NewString()[:8]),
		Content:  fmt.Sprintf("Load test data %d", time.Now().UnixMilli()),
	})
	if err != nil {
		l.WithError(err).Error("failed to encode request body")
		c.add(0, 0)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		l.WithError(err).Error("failed to build request")
		c.add(0, 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.add(0, time.Since(start))
		}
		return
	}
	resp.Body.Close()
	c.add(resp.StatusCode, time.Since(start))
}

// Percentile returns the q-quantile (nearest rank) of samples.
func Percentile(samples []time.Duration, q float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	return sorted[min(max(rank, 0), len(sorted)-1)]
}
