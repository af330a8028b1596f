// Package worker composes the admission gate, workspace manager, download
// invoker and upload collaborator into the per-request lifecycle:
// acquire -> workspace -> invoke -> deliver -> release. Slot release and
// workspace destruction happen on every exit path via defers, which is
// the load-bearing property of the whole service.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clipdock/clipdock/internal/gate"
	"github.com/clipdock/clipdock/internal/storage"
	"github.com/clipdock/clipdock/internal/util"
	"github.com/clipdock/clipdock/internal/workspace"
	"github.com/clipdock/clipdock/internal/ytdlp"
)

// Invoker is the capability the external downloader tool provides: given
// a URL and an output directory, produce one artifact or fail.
type Invoker interface {
	Fetch(ctx context.Context, url, dir string) (*ytdlp.Artifact, error)
}

type Worker struct {
	Gate       *gate.Gate
	Workspaces *workspace.Manager
	Invoker    Invoker
	Uploader   storage.Uploader

	// QueueTimeout is the admission wait; distinct from the download
	// timeout the Invoker carries.
	QueueTimeout time.Duration
}

// Run performs one download attempt. deliver is called with the artifact
// while its workspace is still on disk; the workspace is destroyed and
// the slot released after deliver returns, whatever happened.
func (w *Worker) Run(ctx context.Context, url string, deliver func(*ytdlp.Artifact) error) error {
	id := util.ShortID(uuid.New().String())

	release, err := w.Gate.Acquire(ctx, w.QueueTimeout)
	if err != nil {
		log.Printf("[%s] Rejected: %v", id, err)
		return err
	}
	defer release()

	ws, err := w.Workspaces.Create()
	if err != nil {
		log.Printf("[%s] Workspace creation failed: %v", id, err)
		return &WorkspaceError{Err: err}
	}
	defer ws.Destroy()

	log.Printf("[%s] Downloading %s", id, util.Truncate(url, 120))
	art, err := w.Invoker.Fetch(ctx, url, ws.Path)
	if err != nil {
		log.Printf("[%s] Download failed: %v", id, err)
		return err
	}

	log.Printf("[%s] Got %s (%.2fMB)", id, art.Name, float64(art.Size)/1024/1024)
	if err := deliver(art); err != nil {
		return err
	}

	log.Printf("[%s] Done", id)
	return nil
}

// DownloadToBucket runs one attempt and hands the artifact to the upload
// collaborator. An empty object name falls back to the artifact's own
// filename, sanitized.
func (w *Worker) DownloadToBucket(ctx context.Context, url, bucket, object string) (*storage.ObjectInfo, error) {
	var info *storage.ObjectInfo
	err := w.Run(ctx, url, func(art *ytdlp.Artifact) error {
		if w.Uploader == nil {
			return &UploadError{Err: errNoUploader}
		}
		name := object
		if name == "" {
			name = util.SanitizeFilename(art.Name)
		}
		oi, err := w.Uploader.Upload(ctx, bucket, name, art.Path)
		if err != nil {
			return &UploadError{Err: err}
		}
		info = oi
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
