// Package localapi serves the processor over plain HTTP for local chaos runs.
// It stands in for API Gateway on /process and for the invoking platform on
// /events.
package localapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/model"
)

// Invoker runs one invocation payload.
type Invoker interface {
	Handle(ctx context.Context, payload json.RawMessage) (events.APIGatewayProxyResponse, error)
}

// ReadinessCheck reports whether a backend is reachable.
type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}

// Server adapts HTTP requests into processor invocations.
type Server struct {
	invoker Invoker
	checks  []ReadinessCheck
	logger  logrus.FieldLogger
}

// NewRouter mounts the local API on a chi router.
func NewRouter(inv Invoker, gatherer prometheus.Gatherer, l logrus.FieldLogger, checks ...ReadinessCheck) http.Handler {
	s := &Server{invoker: inv, checks: checks, logger: l}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/process", s.process)
	r.Post("/events", s.events)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// NewHTTPServer wraps the router with the timeouts used for local runs.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	requestID := uuid.NewString()
	payload, err := json.Marshal(events.APIGatewayProxyRequest{
		Resource:   "/process",
		Path:       r.URL.Path,
		HTTPMethod: r.Method,
		Headers:    map[string]string{"Content-Type": r.Header.Get("Content-Type")},
		Body:       string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: requestID,
		},
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	s.invoke(r.Context(), w, requestID, payload)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	s.invoke(r.Context(), w, uuid.NewString(), payload)
}

// invoke surfaces a propagated failure as 502, where the platform would
// schedule a retry.
func (s *Server) invoke(ctx context.Context, w http.ResponseWriter, requestID string, payload []byte) {
	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: requestID})

	resp, err := s.invoker.Handle(ctx, payload)
	if err != nil {
		s.logger.WithField("request_id", requestID).WithError(err).Warn("invocation failed, would be retried")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{Error: err.Error()})
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.checks {
		if err := c.IsReady(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{Error: c.Name() + ": " + err.Error()})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
