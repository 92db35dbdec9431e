package model

import "time"

// Domain constants shared across record, pipeline, and storage packages.
const (
	KeyPrefixFile      = "FILE#"
	KeyPrefixProcessed = "PROCESSED#"

	RecordIDLength     = 16
	RecordTTL          = 7 * 24 * time.Hour
	DefaultContentType = "unknown"
	DefaultFilename    = "unknown"

	// TimeLayout renders every persisted timestamp (UTC).
	TimeLayout = time.RFC3339Nano
	// DatePartitionLength is the leading slice of a timestamp used as the
	// date partition, e.g. "2024-01-15".
	DatePartitionLength = len("2006-01-02")
)

// Source constants for Record.Source.
const (
	SourceS3  = "s3"
	SourceAPI = "api"
)
