// Package app wires configuration, AWS clients, pipelines, and the handler.
package app

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/chaos"
	"github.com/sh3r4rd/nyx/internal/config"
	"github.com/sh3r4rd/nyx/internal/handler"
	"github.com/sh3r4rd/nyx/internal/pipeline"
	"github.com/sh3r4rd/nyx/internal/storage"
	"github.com/sh3r4rd/nyx/internal/store"
)

// App is the fully wired processor shared by the Lambda entrypoint and nyxctl.
type App struct {
	Config   config.Config
	Logger   *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *pipeline.Metrics
	Store    *store.DynamoDbRecordStoreImpl
	Handler  *handler.Handler
}

// Clients are the AWS service clients the pipelines depend on.
type Clients struct {
	S3       storage.HeadObjectAPI
	DynamoDB store.DynamoDBAPI
}

// New loads the AWS configuration for cfg and builds the App.
func New(ctx context.Context, cfg config.Config, l *logrus.Logger) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	clients := Clients{
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		}),
		DynamoDB: dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
	}

	return Build(cfg, clients, l), nil
}

// Build assembles the App around already constructed clients.
func Build(cfg config.Config, clients Clients, l *logrus.Logger) *App {
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)
	recordStore := store.NewDynamoDbRecordStoreImpl(clients.DynamoDB, cfg.TableName, l)

	deps := pipeline.Deps{
		Chaos:    chaos.New(cfg.ChaosEnabled, cfg.ChaosRate),
		Resolver: storage.NewS3MetadataResolverImpl(clients.S3, l),
		Store:    recordStore,
		Metrics:  metrics,
		Logger:   l,
	}

	l.WithFields(logrus.Fields{
		"table":         cfg.TableName,
		"environment":   cfg.Environment,
		"chaos_enabled": cfg.ChaosEnabled,
		"chaos_rate":    cfg.ChaosRate,
	}).Info("processor configured")

	return &App{
		Config:   cfg,
		Logger:   l,
		Registry: reg,
		Metrics:  metrics,
		Store:    recordStore,
		Handler: handler.New(
			pipeline.NewUploadPipeline(cfg, deps),
			pipeline.NewRequestPipeline(cfg, deps),
			metrics,
			l,
		),
	}
}
