package model

// Record represents a single item in the records DynamoDB table.
// Storage-path and request-path records share the key layout; source-specific
// attributes are omitted when nil or empty.
type Record struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	GSI1PK string `dynamodbav:"gsi1pk"`
	GSI1SK string `dynamodbav:"gsi1sk"`
	Source string `dynamodbav:"source"`

	// S3 metadata
	Bucket      string `dynamodbav:"bucket,omitempty"`
	Key         string `dynamodbav:"key,omitempty"`
	Size        *int64 `dynamodbav:"size,omitempty"`
	ContentType string `dynamodbav:"content_type,omitempty"`
	ETag        string `dynamodbav:"etag,omitempty"`

	// API request
	Filename      string `dynamodbav:"filename,omitempty"`
	ContentLength *int   `dynamodbav:"content_length,omitempty"`

	ProcessedAt     string `dynamodbav:"processed_at"`
	Environment     string `dynamodbav:"environment"`
	LambdaRequestID string `dynamodbav:"lambda_request_id"`
	TTL             int64  `dynamodbav:"ttl"`
}
