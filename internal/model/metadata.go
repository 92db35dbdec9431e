package model

// ObjectMetadata is the authoritative object metadata returned by a
// header-only lookup against the storage backend.
type ObjectMetadata struct {
	ContentType string
	ETag        string
}
