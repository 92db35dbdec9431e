package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sh3r4rd/nyx/internal/app"
	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/loadtest"
	"github.com/sh3r4rd/nyx/internal/localapi"
	"github.com/sh3r4rd/nyx/internal/logging"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	eventFile string
	addr      string
	endpoint  string
	pause     time.Duration
)

func main() {
	c := &cobra.Command{
		Use:           "nyxctl",
		Short:         "Operator tooling for the nyx upload processor",
		Version:       fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for nyxctl",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.Version)
		},
	})

	invokeCmd.Flags().StringVarP(&eventFile, "event", "e", "-", "Invocation payload file (- for stdin)")
	c.AddCommand(invokeCmd)

	serveCmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	c.AddCommand(serveCmd)

	loadtestCmd.Flags().StringVar(&endpoint, "endpoint", os.Getenv("API_ENDPOINT"), "API base URL (defaults to $API_ENDPOINT)")
	loadtestCmd.Flags().DurationVar(&pause, "pause", 500*time.Millisecond, "Pause between iterations of one virtual user")
	c.AddCommand(loadtestCmd)

	if err := c.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%+v", err)
	}
}

var (
	invokeCmd = &cobra.Command{
		Use:   "invoke",
		Short: "Run one invocation payload through the processor",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			payload, err := readPayload(eventFile)
			if err != nil {
				return err
			}

			a, err := setup(c.Context())
			if err != nil {
				return err
			}

			resp, err := a.Handler.Handle(c.Context(), payload)
			if err != nil {
				return errors.Wrap(err, "invocation failed, the platform would retry this batch")
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode response")
			}
			fmt.Println(string(out))
			return nil
		},
	}

	//

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the processor over HTTP for local chaos runs",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}

			srv := localapi.NewHTTPServer(addr, localapi.NewRouter(a.Handler, a.Registry, a.Logger, a.Store))
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			a.Logger.WithField("addr", addr).Info("local API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "listen")
			}
			return nil
		},
	}

	//

	loadtestCmd = &cobra.Command{
		Use:   "loadtest",
		Short: "Drive staged traffic against the /process endpoint",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if endpoint == "" {
				return errors.New("--endpoint or API_ENDPOINT is required")
			}
			l := logging.New(os.Stderr, "info")

			report, err := loadtest.Run(c.Context(), loadtest.Options{
				Endpoint:   endpoint,
				Stages:     loadtest.DefaultStages,
				Pause:      pause,
				Thresholds: loadtest.DefaultThresholds,
				Logger:     l,
			})
			if err != nil {
				return errors.Wrap(err, "load test")
			}

			l.WithFields(logrus.Fields{
				"requests":       report.Requests,
				"ok":             report.OK,
				"chaos_failures": report.ChaosFailures,
				"other_failures": report.OtherFailures,
				"failure_rate":   report.FailureRate,
				"p95":            report.P95.String(),
			}).Info("load test complete")

			if v := report.Violations(loadtest.DefaultThresholds); len(v) > 0 {
				return errors.Errorf("thresholds failed: %s", strings.Join(v, "; "))
			}
			return nil
		},
	}
)

func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logging.New(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		payload, err := io.ReadAll(os.Stdin)
		return payload, errors.Wrap(err, "read stdin")
	}
	payload, err := os.ReadFile(path)
	return payload, errors.Wrapf(err, "read %s", path)
}
