package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
)

// GCSUploader writes artifacts to Google Cloud Storage using application
// default credentials.
type GCSUploader struct {
	client *gcs.Client
}

func NewGCSUploader(ctx context.Context) (*GCSUploader, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSUploader{client: client}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, bucket, object, srcPath string) (*ObjectInfo, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	contentType := contentTypeFor(object)

	w := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return nil, fmt.Errorf("upload gs://%s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize gs://%s/%s: %w", bucket, object, err)
	}

	log.Printf("[GCS] Uploaded gs://%s/%s (%.2fMB)", bucket, object, float64(info.Size())/1024/1024)

	return &ObjectInfo{
		Bucket:      bucket,
		Object:      object,
		Size:        info.Size(),
		ContentType: contentType,
		URI:         fmt.Sprintf("gs://%s/%s", bucket, object),
	}, nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
