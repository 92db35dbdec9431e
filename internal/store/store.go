// Package store persists processed records to DynamoDB.
package store

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sh3r4rd/nyx/internal/model"
	"github.com/sh3r4rd/nyx/internal/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the store.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// RecordStore persists processed records.
type RecordStore interface {
	Put(ctx context.Context, rec model.Record) error
}

// DynamoDbRecordStoreImpl writes records to a single DynamoDB table.
type DynamoDbRecordStoreImpl struct {
	client    DynamoDBAPI
	tableName string
	logger    logrus.FieldLogger
}

func NewDynamoDbRecordStoreImpl(client DynamoDBAPI, tableName string, l logrus.FieldLogger) *DynamoDbRecordStoreImpl {
	return &DynamoDbRecordStoreImpl{
		client:    client,
		tableName: tableName,
		logger:    l,
	}
}

// Put creates or replaces the item keyed by (pk, sk). Writing the same record
// twice leaves one item. Errors are returned without local retry.
func (s *DynamoDbRecordStoreImpl) Put(ctx context.Context, rec model.Record) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"pk":         rec.PK,
			"table":      s.tableName,
			"error_code": storage.ErrorCode(err),
		}).WithError(err).Error("failed to write to DynamoDB")
		return errors.Wrapf(err, "put item %s", rec.PK)
	}

	s.logger.WithField("pk", rec.PK).Info("stored record")
	return nil
}

// IsReady checks that the table exists and is reachable.
func (s *DynamoDbRecordStoreImpl) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	return errors.Wrapf(err, "describe table %s", s.tableName)
}

func (s *DynamoDbRecordStoreImpl) Name() string {
	return "RecordStore[" + s.tableName + "]"
}
