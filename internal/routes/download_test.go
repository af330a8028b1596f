package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipdock/clipdock/internal/config"
	"github.com/clipdock/clipdock/internal/gate"
	"github.com/clipdock/clipdock/internal/routes"
	"github.com/clipdock/clipdock/internal/runjob"
	"github.com/clipdock/clipdock/internal/server"
	"github.com/clipdock/clipdock/internal/storage"
	"github.com/clipdock/clipdock/internal/worker"
	"github.com/clipdock/clipdock/internal/workspace"
	"github.com/clipdock/clipdock/internal/ytdlp"
)

type fakeInvoker struct {
	calls    int64
	fail     error
	delay    time.Duration
	fileName string
	payload  string
}

func (f *fakeInvoker) Fetch(ctx context.Context, url, dir string) (*ytdlp.Artifact, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		return nil, f.fail
	}
	name := f.fileName
	if name == "" {
		name = "My Clip.mp4"
	}
	payload := f.payload
	if payload == "" {
		payload = "mp4 payload bytes"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		return nil, err
	}
	return &ytdlp.Artifact{Path: path, Name: name, Size: int64(len(payload)), ContentType: "video/mp4"}, nil
}

type fakeUploader struct {
	fail error
}

func (f *fakeUploader) Upload(ctx context.Context, bucket, object, srcPath string) (*storage.ObjectInfo, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, err
	}
	return &storage.ObjectInfo{
		Bucket: bucket, Object: object, Size: info.Size(),
		ContentType: "video/mp4", URI: "gs://" + bucket + "/" + object,
	}, nil
}

type fakeTrigger struct {
	execution string
	fail      error
	last      runjob.Params
}

func (f *fakeTrigger) Trigger(ctx context.Context, p runjob.Params) (string, error) {
	f.last = p
	if f.fail != nil {
		return "", f.fail
	}
	return f.execution, nil
}

type testEnv struct {
	srv     *httptest.Server
	worker  *worker.Worker
	invoker *fakeInvoker
	root    string
}

func newTestEnv(t *testing.T, cfg *config.Config, inv *fakeInvoker, up storage.Uploader, trigger routes.JobTrigger) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Port: "0", QueueTimeout: time.Second}
	}
	root := t.TempDir()
	w := &worker.Worker{
		Gate:         gate.New(1),
		Workspaces:   workspace.NewManager(root, 0),
		Invoker:      inv,
		Uploader:     up,
		QueueTimeout: cfg.QueueTimeout,
	}
	h := &routes.Handler{Cfg: cfg, Worker: w, Trigger: trigger}
	srv := httptest.NewServer(server.New(cfg, h).Handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, worker: w, invoker: inv, root: root}
}

func (e *testEnv) workspaceCount() int {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return -1
	}
	return len(entries)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, nil)

	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(1), body["slots"])
}

func TestAuthRejectedBeforeAnyWork(t *testing.T) {
	cfg := &config.Config{Port: "0", QueueTimeout: time.Second, WorkerToken: "s3cret"}
	env := newTestEnv(t, cfg, &fakeInvoker{}, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 401, resp.StatusCode)
	require.Zero(t, atomic.LoadInt64(&env.invoker.calls))
	require.Equal(t, 1, env.worker.Gate.Available())
}

func TestAuthAccepted(t *testing.T) {
	cfg := &config.Config{Port: "0", QueueTimeout: time.Second, WorkerToken: "s3cret"}
	env := newTestEnv(t, cfg, &fakeInvoker{}, nil, nil)

	req, _ := http.NewRequest("POST", env.srv.URL+"/download?url=https://example.com/v", nil)
	req.Header.Set("X-Worker-Token", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}

func TestDownloadRequiresURL(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 400, resp.StatusCode)
	require.Zero(t, atomic.LoadInt64(&env.invoker.calls))
}

func TestUploadRequiresBucketBeforeAdmission(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v&to_gcs=true", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 400, resp.StatusCode)
	require.Zero(t, atomic.LoadInt64(&env.invoker.calls))
	require.Equal(t, 1, env.worker.Gate.Available())
}

func TestDownloadStreamsExactBytes(t *testing.T) {
	inv := &fakeInvoker{payload: "exact downloader bytes"}
	env := newTestEnv(t, nil, inv, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "My Clip.mp4")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "exact downloader bytes", string(body))

	// workspace is destroyed and the slot released after the body is sent
	require.Eventually(t, func() bool {
		return env.workspaceCount() == 0 && env.worker.Gate.Available() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCapacityExceededMapsTo429(t *testing.T) {
	cfg := &config.Config{Port: "0", QueueTimeout: 50 * time.Millisecond}
	env := newTestEnv(t, cfg, &fakeInvoker{}, nil, nil)

	// occupy the single slot directly
	release, err := env.worker.Gate.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer release()

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 429, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["retry"])
	require.Zero(t, env.workspaceCount(), "no workspace may exist for a rejected request")
	require.Zero(t, atomic.LoadInt64(&env.invoker.calls))
}

func TestDownloaderFailureCarriesTruncatedDiagnostics(t *testing.T) {
	inv := &fakeInvoker{fail: &ytdlp.InvokeError{Kind: ytdlp.KindNonZeroExit, Diagnostics: "Video unavailable"}}
	env := newTestEnv(t, nil, inv, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 422, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "non_zero_exit", body["kind"])
	require.Contains(t, body["error"], "unavailable")
	require.Zero(t, env.workspaceCount())
	require.Equal(t, 1, env.worker.Gate.Available())
}

func TestDownloadTimeoutMapsTo504(t *testing.T) {
	inv := &fakeInvoker{fail: &ytdlp.InvokeError{Kind: ytdlp.KindTimeout, Diagnostics: "download exceeded 1s"}}
	env := newTestEnv(t, nil, inv, nil, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 504, resp.StatusCode)
}

func TestUploadModeReturnsMetadata(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, &fakeUploader{}, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v&to_gcs=true&bucket=clips&object_name=out.mp4", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var info storage.ObjectInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, "clips", info.Bucket)
	require.Equal(t, "out.mp4", info.Object)
	require.Equal(t, "gs://clips/out.mp4", info.URI)
	require.Zero(t, env.workspaceCount())
}

func TestUploadModeUsesDefaultBucket(t *testing.T) {
	cfg := &config.Config{Port: "0", QueueTimeout: time.Second, DefaultBucket: "default-clips"}
	env := newTestEnv(t, cfg, &fakeInvoker{}, &fakeUploader{}, nil)

	resp, err := http.Post(env.srv.URL+"/download?url=https://example.com/v&to_gcs=true", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var info storage.ObjectInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, "default-clips", info.Bucket)
}

func TestTriggerJob(t *testing.T) {
	trigger := &fakeTrigger{execution: "projects/p/locations/r/jobs/j/executions/x1"}
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, trigger)

	payload := `{"url":"https://example.com/v","bucket":"clips","object_name":"o.mp4"}`
	resp, err := http.Post(env.srv.URL+"/jobs", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 202, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "dispatched", body["status"])
	require.Equal(t, trigger.execution, body["execution"])
	require.Equal(t, "clips", trigger.last.Bucket)

	// triggering never touches the admission gate
	require.Equal(t, 1, env.worker.Gate.Available())
	require.Zero(t, atomic.LoadInt64(&env.invoker.calls))
}

func TestTriggerJobRequiresURL(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, &fakeTrigger{execution: "x"})

	resp, err := http.Post(env.srv.URL+"/jobs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 400, resp.StatusCode)
}

func TestTriggerJobUnconfigured(t *testing.T) {
	env := newTestEnv(t, nil, &fakeInvoker{}, nil, nil)

	resp, err := http.Post(env.srv.URL+"/jobs", "application/json", strings.NewReader(`{"url":"https://example.com/v"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 503, resp.StatusCode)
}
