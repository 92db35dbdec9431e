package record

import (
	"time"
	"unicode/utf8"

	"github.com/sh3r4rd/nyx/internal/model"
)

// Stamp carries the invocation-scoped values written into every record.
type Stamp struct {
	Environment string
	RequestID   string
	Now         time.Time
}

// UploadID derives the identity of a storage-path record from the stable
// notification fields, so redelivery maps to the same primary key. The event
// time is hashed as delivered.
func UploadID(evt model.UploadEvent) string {
	return DeriveID(evt.Bucket, evt.Key, evt.EventTime)
}

// RequestID derives the identity of a request-path record. The write time is
// part of the input, so identical requests never share an id.
func RequestID(req model.GenericRequest, now time.Time) string {
	return DeriveID(model.SourceAPI, filename(req), FormatTime(now))
}

// FromUpload builds the storage-path record for evt enriched with meta.
func FromUpload(id string, evt model.UploadEvent, meta model.ObjectMetadata, st Stamp) model.Record {
	contentType := meta.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}
	size := evt.Size

	rec := base(id, evt.EventTime, st)
	rec.Source = model.SourceS3
	rec.Bucket = evt.Bucket
	rec.Key = evt.Key
	rec.Size = &size
	rec.ContentType = contentType
	rec.ETag = meta.ETag
	return rec
}

// FromRequest builds the request-path record for req. The record's sort key
// and date partition use the write time.
func FromRequest(id string, req model.GenericRequest, st Stamp) model.Record {
	length := utf8.RuneCountInString(req.Content)

	rec := base(id, FormatTime(st.Now), st)
	rec.Source = model.SourceAPI
	rec.Filename = filename(req)
	rec.ContentLength = &length
	return rec
}

// FormatTime renders t in UTC using the persisted timestamp layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(model.TimeLayout)
}

func base(id, eventTime string, st Stamp) model.Record {
	fileKey := model.KeyPrefixFile + id
	now := st.Now.UTC()

	return model.Record{
		PK:              fileKey,
		SK:              model.KeyPrefixProcessed + eventTime,
		GSI1PK:          datePartition(eventTime),
		GSI1SK:          fileKey,
		ProcessedAt:     FormatTime(now),
		Environment:     st.Environment,
		LambdaRequestID: st.RequestID,
		TTL:             now.Add(model.RecordTTL).Unix(),
	}
}

// datePartition keeps the leading date of a timestamp; shorter values are
// kept whole.
func datePartition(ts string) string {
	if len(ts) < model.DatePartitionLength {
		return ts
	}
	return ts[:model.DatePartitionLength]
}

func filename(req model.GenericRequest) string {
	if req.Filename == "" {
		return model.DefaultFilename
	}
	return req.Filename
}
