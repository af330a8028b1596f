package storage

import "context"

// ObjectInfo describes where an artifact ended up.
type ObjectInfo struct {
	Bucket      string `json:"bucket"`
	Object      string `json:"object"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	URI         string `json:"uri"`
}

// Uploader moves a finished artifact out of its workspace. No retries:
// a failed upload is surfaced as-is and the caller decides.
type Uploader interface {
	Upload(ctx context.Context, bucket, object, srcPath string) (*ObjectInfo, error)
}
