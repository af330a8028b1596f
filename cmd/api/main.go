package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clipdock/clipdock/internal/alerts"
	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/gate"
	"github.com/clipdock/clipdock/internal/middleware"
	"github.com/clipdock/clipdock/internal/routes"
	"github.com/clipdock/clipdock/internal/runjob"
	"github.com/clipdock/clipdock/internal/server"
	"github.com/clipdock/clipdock/internal/storage"
	"github.com/clipdock/clipdock/internal/worker"
	"github.com/clipdock/clipdock/internal/workspace"
	"github.com/clipdock/clipdock/internal/ytdlp"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	alerts.Init(cfg.DiscordWebhookURL, cfg.DiscordPingUserID)

	workspaces := workspace.NewManager(cfg.WorkDir, cfg.MinDiskGB)
	workspaces.ClearAll()

	var uploader storage.Uploader
	if cfg.StorageDir != "" {
		log.Printf("[Storage] Using mounted volume at %s", cfg.StorageDir)
		uploader = &storage.MountUploader{Dir: cfg.StorageDir}
	} else if gcs, err := storage.NewGCSUploader(ctx); err != nil {
		log.Printf("[Storage] GCS client unavailable, uploads disabled: %v", err)
	} else {
		defer gcs.Close()
		uploader = gcs
	}

	w := &worker.Worker{
		Gate:       gate.New(cfg.MaxConcurrency),
		Workspaces: workspaces,
		Invoker: &ytdlp.Invoker{
			Bin:        cfg.YtdlpPath,
			FFmpegPath: cfg.FFmpegPath,
			Timeout:    cfg.DownloadTimeout,
		},
		Uploader:     uploader,
		QueueTimeout: cfg.QueueTimeout,
	}

	h := &routes.Handler{Cfg: cfg, Worker: w}
	if trigger, err := runjob.New(ctx, runjob.Params{
		Project: cfg.ProjectID,
		Region:  cfg.JobRegion,
		Job:     cfg.JobName,
	}); err != nil {
		log.Printf("[Jobs] Trigger client unavailable: %v", err)
	} else {
		defer trigger.Close()
		h.Trigger = trigger
	}

	middleware.StartRateLimitCleanup()

	srv := server.New(cfg, h)
	go func() {
		log.Printf("[Server] clipdock %s listening on :%s (concurrency=%d, queue wait=%s)",
			config.Version, cfg.Port, cfg.MaxConcurrency, cfg.QueueTimeout)
		alerts.ServerStarted(config.Version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	alerts.ServerStopping()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
}
