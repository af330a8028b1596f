package worker

import (
	"errors"

	"github.com/clipdock/clipdock/internal/gate"
)

// ErrCapacity is the admission-timeout outcome; callers map it to a
// retry-later response.
var ErrCapacity = gate.ErrCapacity

var errNoUploader = errors.New("no uploader configured (set BUCKET credentials or STORAGE_DIR)")

// WorkspaceError is a local fault (disk, permissions), never the
// caller's fault.
type WorkspaceError struct {
	Err error
}

func (e *WorkspaceError) Error() string { return "workspace: " + e.Err.Error() }
func (e *WorkspaceError) Unwrap() error { return e.Err }

// UploadError wraps a storage collaborator failure. No retry.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "upload: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }
