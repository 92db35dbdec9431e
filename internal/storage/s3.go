// Package storage resolves object metadata from S3 for storage-triggered
// events.
package storage

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/model"
)

// HeadObjectAPI is the subset of the S3 client used by the resolver.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// MetadataResolver looks up the headers of a stored object.
type MetadataResolver interface {
	Resolve(ctx context.Context, bucket, key string) (model.ObjectMetadata, error)
}

// S3MetadataResolverImpl resolves metadata with S3 HeadObject.
type S3MetadataResolverImpl struct {
	client HeadObjectAPI
	logger logrus.FieldLogger
}

func NewS3MetadataResolverImpl(client HeadObjectAPI, l logrus.FieldLogger) *S3MetadataResolverImpl {
	return &S3MetadataResolverImpl{
		client: client,
		logger: l,
	}
}

// Resolve issues a header-only lookup for bucket/key. Every backend error is
// returned wrapped; callers do not distinguish not-found from throttling.
func (r *S3MetadataResolverImpl) Resolve(ctx context.Context, bucket, key string) (model.ObjectMetadata, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"bucket":     bucket,
			"key":        key,
			"error_code": ErrorCode(err),
		}).WithError(err).Error("failed to get S3 object metadata")
		return model.ObjectMetadata{}, errors.Wrapf(err, "head object s3://%s/%s", bucket, key)
	}

	meta := model.ObjectMetadata{
		ContentType: aws.ToString(out.ContentType),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}
	if meta.ContentType == "" {
		meta.ContentType = model.DefaultContentType
	}

	r.logger.WithFields(logrus.Fields{
		"bucket":       bucket,
		"key":          key,
		"content_type": meta.ContentType,
	}).Debug("resolved object metadata")

	return meta, nil
}

// ErrorCode returns the AWS API error code carried by err, or "" when err
// did not come from an AWS service.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
