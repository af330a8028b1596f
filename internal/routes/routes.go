package routes

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/middleware"
	"github.com/clipdock/clipdock/internal/runjob"
	"github.com/clipdock/clipdock/internal/worker"
)

// JobTrigger is the external job-orchestrator capability behind
// POST /jobs; faked in tests.
type JobTrigger interface {
	Trigger(ctx context.Context, p runjob.Params) (string, error)
}

type Handler struct {
	Cfg     *config.Config
	Worker  *worker.Worker
	Trigger JobTrigger
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(h.Cfg.WorkerToken))
		r.Post("/download", h.handleDownload)
		r.Post("/jobs", h.handleTriggerJob)
		r.Post("/jobs/trigger", h.handleTriggerJob)
	})
}
