package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/util"
)

var ytdlpErrorRe = regexp.MustCompile(`(?i)ERROR[:\s]+(.+?)(?:\n|$)`)

type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindNonZeroExit     ErrorKind = "non_zero_exit"
	KindNoOutput        ErrorKind = "no_output"
	KindAmbiguousOutput ErrorKind = "ambiguous_output"
)

// InvokeError describes a failed yt-dlp run. Diagnostics is already
// bounded; it is safe to put in a response body.
type InvokeError struct {
	Kind        ErrorKind
	Diagnostics string
}

func (e *InvokeError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("yt-dlp: %s", e.Kind)
	}
	return fmt.Sprintf("yt-dlp: %s: %s", e.Kind, e.Diagnostics)
}

// Artifact is the single file a successful run leaves in the workspace.
type Artifact struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// Invoker runs yt-dlp as a child process bound to a workspace directory.
type Invoker struct {
	Bin        string
	FFmpegPath string

	// Timeout bounds the whole run, download and remux included. Zero
	// means no limit (job mode).
	Timeout time.Duration
}

// Fetch downloads url into dir and returns the produced artifact.
// yt-dlp's merge step collapses separate audio/video streams into one
// mp4, so a successful run is expected to leave exactly one file.
func (iv *Invoker) Fetch(ctx context.Context, url, dir string) (*Artifact, error) {
	bin := iv.Bin
	if bin == "" {
		bin = "yt-dlp"
	}

	if iv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.Timeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
	}
	if iv.FFmpegPath != "" {
		args = append(args, "--ffmpeg-location", iv.FFmpegPath)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, bin, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &InvokeError{Kind: KindNonZeroExit, Diagnostics: err.Error()}
	}

	if err := cmd.Start(); err != nil {
		return nil, &InvokeError{Kind: KindNonZeroExit, Diagnostics: fmt.Sprintf("failed to start %s: %v", bin, err)}
	}

	var stderrOutput strings.Builder
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if stderrOutput.Len() < 4*config.DiagnosticsLimit {
			stderrOutput.WriteString(scanner.Text() + "\n")
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &InvokeError{Kind: KindTimeout, Diagnostics: fmt.Sprintf("download exceeded %s", iv.Timeout)}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		diag := stderrOutput.String()
		if m := ytdlpErrorRe.FindStringSubmatch(diag); len(m) > 1 {
			diag = strings.TrimSpace(m[1])
		}
		return nil, &InvokeError{Kind: KindNonZeroExit, Diagnostics: util.Truncate(diag, config.DiagnosticsLimit)}
	}

	return selectArtifact(dir)
}

// selectArtifact applies the one deterministic output rule: after temp
// files are excluded, the run must have produced exactly one file.
// Anything else means the tool misbehaved and we refuse to guess.
func selectArtifact(dir string) (*Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &InvokeError{Kind: KindNoOutput, Diagnostics: fmt.Sprintf("failed to read workspace: %v", err)}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if isTempFile(name) {
			continue
		}
		names = append(names, name)
	}

	switch len(names) {
	case 0:
		return nil, &InvokeError{Kind: KindNoOutput, Diagnostics: "downloaded file not found"}
	case 1:
	default:
		return nil, &InvokeError{
			Kind:        KindAmbiguousOutput,
			Diagnostics: util.Truncate("multiple output files: "+strings.Join(names, ", "), config.DiagnosticsLimit),
		}
	}

	path := filepath.Join(dir, names[0])
	info, err := os.Stat(path)
	if err != nil {
		return nil, &InvokeError{Kind: KindNoOutput, Diagnostics: fmt.Sprintf("failed to stat output: %v", err)}
	}

	ext := strings.TrimPrefix(filepath.Ext(names[0]), ".")
	return &Artifact{
		Path:        path,
		Name:        names[0],
		Size:        info.Size(),
		ContentType: MimeFor(ext),
	}, nil
}

func isTempFile(name string) bool {
	return strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".ytdl") ||
		strings.HasSuffix(name, ".temp") ||
		strings.Contains(name, ".part-Frag")
}

func MimeFor(ext string) string {
	ext = strings.ToLower(ext)
	if m, ok := config.ContainerMIMEs[ext]; ok {
		return m
	}
	if m, ok := config.AudioMIMEs[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
