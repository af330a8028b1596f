// The job binary runs one download to completion, driven by env input
// (URL, BUCKET, OBJECT_NAME). It shares the serving path's download
// lifecycle but none of its request-duration limits; Cloud Run Jobs (or
// any batch scheduler) is the expected caller.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/gate"
	"github.com/clipdock/clipdock/internal/storage"
	"github.com/clipdock/clipdock/internal/worker"
	"github.com/clipdock/clipdock/internal/workspace"
	"github.com/clipdock/clipdock/internal/ytdlp"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	url := os.Getenv("URL")
	bucket := os.Getenv("BUCKET")
	objectName := os.Getenv("OBJECT_NAME")

	if url == "" {
		log.Fatal("URL env var is required")
	}
	if bucket == "" && cfg.StorageDir == "" {
		log.Fatal("BUCKET env var is required")
	}

	var uploader storage.Uploader
	if cfg.StorageDir != "" {
		uploader = &storage.MountUploader{Dir: cfg.StorageDir}
	} else {
		gcs, err := storage.NewGCSUploader(ctx)
		if err != nil {
			log.Fatalf("GCS client: %v", err)
		}
		defer gcs.Close()
		uploader = gcs
	}

	w := &worker.Worker{
		Gate:       gate.New(1),
		Workspaces: workspace.NewManager(cfg.WorkDir, cfg.MinDiskGB),
		Invoker: &ytdlp.Invoker{
			Bin:        cfg.YtdlpPath,
			FFmpegPath: cfg.FFmpegPath,
			// no deadline: a batch job may legitimately run for hours
			Timeout: 0,
		},
		Uploader: uploader,
	}

	info, err := w.DownloadToBucket(ctx, url, bucket, objectName)
	if err != nil {
		log.Fatalf("download failed: %v", err)
	}

	fmt.Printf("uploaded=%s\n", info.URI)
}
