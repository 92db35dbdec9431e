package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sh3r4rd/nyx/internal/app"
	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(os.Stdout, cfg.LogLevel)

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}

	lambda.Start(a.Handler.Handle)
}
