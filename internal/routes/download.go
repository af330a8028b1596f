package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"

	"github.com/clipdock/clipdock/internal/alerts"
	"github.com/clipdock/clipdock/internal/util"
	"github.com/clipdock/clipdock/internal/worker"
	"github.com/clipdock/clipdock/internal/ytdlp"
)

// errStreamAborted marks a response body that already started; nothing
// more can be written, only cleaned up.
var errStreamAborted = errors.New("stream aborted")

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := q.Get("url")
	toGCS := q.Get("to_gcs") == "true"
	bucket := orDefault(q.Get("bucket"), h.Cfg.DefaultBucket)
	objectName := q.Get("object_name")

	// All input validation runs before any slot is acquired.
	check := util.ValidateURL(rawURL)
	if !check.Valid {
		respondJSON(w, 400, map[string]string{"error": check.Error})
		return
	}
	if toGCS && bucket == "" {
		respondJSON(w, 400, map[string]string{"error": "bucket is required when to_gcs=true"})
		return
	}

	reqID := util.ShortID(uuid.New().String())

	if toGCS {
		info, err := h.Worker.DownloadToBucket(r.Context(), rawURL, bucket, objectName)
		if err != nil {
			h.writeDownloadError(w, reqID, rawURL, bucket, err)
			return
		}
		respondJSON(w, 200, info)
		return
	}

	err := h.Worker.Run(r.Context(), rawURL, func(art *ytdlp.Artifact) error {
		return streamArtifact(w, r, reqID, art)
	})
	if err != nil {
		h.writeDownloadError(w, reqID, rawURL, bucket, err)
	}
}

// streamArtifact writes the artifact as the response body. The caller's
// workspace outlives this call, so the file stays on disk until the last
// byte is sent (or the client goes away).
func streamArtifact(w http.ResponseWriter, r *http.Request, reqID string, art *ytdlp.Artifact) error {
	f, err := os.Open(art.Path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	safe := util.SanitizeFilename(art.Name)
	ascii := util.ToASCIIFilename(safe)

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", art.Size))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
			ascii, url.PathEscape(safe)))

	if _, err := io.Copy(w, f); err != nil {
		log.Printf("[%s] Stream error: %v", reqID, err)
		return errStreamAborted
	}
	return nil
}

func (h *Handler) writeDownloadError(w http.ResponseWriter, reqID, rawURL, bucket string, err error) {
	if errors.Is(err, errStreamAborted) || errors.Is(err, context.Canceled) {
		// client gone; the lifecycle already cleaned up
		return
	}

	log.Printf("[%s] Error: %v", reqID, err)

	var ie *ytdlp.InvokeError
	var we *worker.WorkspaceError
	var ue *worker.UploadError

	switch {
	case errors.Is(err, worker.ErrCapacity):
		respondJSON(w, 429, map[string]interface{}{
			"error": "capacity exceeded, try again later",
			"retry": true,
		})
	case errors.As(err, &ie):
		alerts.DownloadFailed(reqID, rawURL, err)
		status := 500
		switch ie.Kind {
		case ytdlp.KindTimeout:
			status = 504
		case ytdlp.KindNonZeroExit:
			status = 422
		}
		respondJSON(w, status, map[string]interface{}{
			"error":       util.ToUserError(ie.Diagnostics),
			"kind":        string(ie.Kind),
			"diagnostics": ie.Diagnostics,
		})
	case errors.As(err, &we):
		respondJSON(w, 500, map[string]string{"error": "internal storage error"})
	case errors.As(err, &ue):
		alerts.UploadFailed(reqID, bucket, err)
		respondJSON(w, 502, map[string]string{"error": util.Truncate(err.Error(), 500)})
	default:
		respondJSON(w, 500, map[string]string{"error": util.Truncate(err.Error(), 500)})
	}
}
