package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// MountUploader copies artifacts into a mounted storage volume. Used when
// the deployment mounts the bucket as a filesystem (STORAGE_DIR) instead
// of talking to the storage API.
type MountUploader struct {
	Dir string
}

// destFor resolves the object name inside the mount. Object names are
// caller input, so anything that would land outside Dir is refused.
func (u *MountUploader) destFor(object string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(object))
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", object)
	}
	return filepath.Join(u.Dir, cleaned), nil
}

func (u *MountUploader) Upload(ctx context.Context, bucket, object, srcPath string) (*ObjectInfo, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	destPath, err := u.destFor(object)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("create mount dir: %w", err)
	}

	// Write through a temp name so a crash mid-copy never leaves a
	// half-written object at the final path.
	tmpPath := destPath + ".tmp"
	dest, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tmpPath, err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("copy to mount: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finalize %s: %w", destPath, err)
	}

	log.Printf("[Mount] Wrote %s (%.2fMB)", destPath, float64(info.Size())/1024/1024)

	return &ObjectInfo{
		Bucket:      bucket,
		Object:      object,
		Size:        info.Size(),
		ContentType: contentTypeFor(object),
		URI:         destPath,
	}, nil
}
