package model

// UploadEvent is one normalized storage-upload notification. EventTime is the
// notification's eventTime exactly as delivered; it is never reparsed.
type UploadEvent struct {
	Bucket    string
	Key       string
	Size      int64
	EventTime string
}

// GenericRequest is the JSON body accepted on the synthetic request path.
type GenericRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
