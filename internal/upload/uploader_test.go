package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// handlerClient routes every request into h regardless of host.
func handlerClient(h http.Handler) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result(), nil
	})}
}

type fakeAuth struct {
	err   error
	token string
	host  string
	calls int
}

func (a *fakeAuth) Authenticate(context.Context) error {
	a.calls++
	return a.err
}

func (a *fakeAuth) AccessToken() string { return a.token }
func (a *fakeAuth) Host() string        { return a.host }

type recorder struct {
	mu        sync.Mutex
	progress  []string
	fractions []float64
	clipboard []string
	notices   []string
}

func (r *recorder) SetProgress(text string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, text)
	r.fractions = append(r.fractions, fraction)
}

func (r *recorder) WriteAll(text string) error {
	r.clipboard = append(r.clipboard, text)
	return nil
}

func (r *recorder) Notify(text string) {
	r.notices = append(r.notices, text)
}

type fakeCloud struct {
	engine        *gin.Engine
	targetBody    string
	authorization string
	uploaded      []byte
	contentLength int64
	targetStatus  int
	targetPayload string
	transfers     int
}

func newFakeCloud() *fakeCloud {
	fc := &fakeCloud{
		targetStatus:  http.StatusOK,
		targetPayload: `{"signed_url":"https://storage.example.test/upload/f-123?sig=1","file_id":"f-123","thumbnail_signed_url":"https://storage.example.test/thumb"}`,
	}
	engine := gin.New()
	engine.POST("/api/file-uploader/resumeable-upload", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		fc.targetBody = string(body)
		fc.authorization = c.GetHeader("Authorization")
		c.Data(fc.targetStatus, "application/json", []byte(fc.targetPayload))
	})
	engine.POST("/upload/:id", func(c *gin.Context) {
		fc.transfers++
		fc.contentLength = c.Request.ContentLength
		fc.uploaded, _ = io.ReadAll(c.Request.Body)
		c.Status(http.StatusOK)
	})
	fc.engine = engine
	return fc
}

func writeRecording(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestUploadPublishesLink(t *testing.T) {
	cloud := newFakeCloud()
	rec := &recorder{}
	auth := &fakeAuth{token: "JWT", host: "cloud.videocom.com"}
	path := writeRecording(t, "recording.mp4", 300*1024)
	client := handlerClient(cloud.engine)

	u := NewUploader(Options{Auth: auth, APIClient: client, TransferClient: client, Progress: rec, Clipboard: rec, Notifier: rec})
	result, err := u.Upload(context.Background(), Request{Path: path, Title: "My Clip:1.mp4 "})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if auth.calls != 1 {
		t.Fatalf("Authenticate calls = %d, want 1", auth.calls)
	}
	if cloud.authorization != "Bearer JWT" {
		t.Fatalf("Authorization = %q", cloud.authorization)
	}
	if got := gjson.Get(cloud.targetBody, "extension").String(); got != "mp4" {
		t.Fatalf("extension = %q", got)
	}
	if got := gjson.Get(cloud.targetBody, "source").String(); got != "web" {
		t.Fatalf("source = %q", got)
	}
	if got := gjson.Get(cloud.targetBody, "title").String(); got != "My%20Clip_1.mp4" {
		t.Fatalf("title = %q", got)
	}

	if cloud.contentLength != 300*1024 {
		t.Fatalf("Content-Length = %d", cloud.contentLength)
	}
	want, _ := os.ReadFile(path)
	if string(cloud.uploaded) != string(want) {
		t.Fatalf("uploaded %d bytes, want file contents", len(cloud.uploaded))
	}

	wantLink := "https://cloud.videocom.com/media/f-123"
	if result.Link != wantLink || result.FileID != "f-123" || result.Bytes != 300*1024 {
		t.Fatalf("Result = %+v", result)
	}
	if result.Target.ThumbnailSignedURL == "" {
		t.Fatal("optional thumbnail url was dropped")
	}
	if len(rec.clipboard) != 1 || rec.clipboard[0] != wantLink {
		t.Fatalf("clipboard = %v", rec.clipboard)
	}
	if len(rec.notices) != 1 || rec.notices[0] != LinkCopiedMessage {
		t.Fatalf("notices = %v", rec.notices)
	}

	if rec.progress[0] != ProgressUploading || rec.progress[len(rec.progress)-1] != ProgressGetLink {
		t.Fatalf("progress = %v", rec.progress)
	}
	if got := rec.fractions[len(rec.fractions)-2]; got != 1 {
		t.Fatalf("final upload fraction = %v, want 1", got)
	}
}

func TestUploadDefaultsTitleAndFormat(t *testing.T) {
	cloud := newFakeCloud()
	client := handlerClient(cloud.engine)
	path := writeRecording(t, "Take 2.MP4", 10)
	u := NewUploader(Options{Auth: &fakeAuth{token: "JWT", host: "cloud.videocom.com"}, APIClient: client, TransferClient: client})

	if _, err := u.Upload(context.Background(), Request{Path: path}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got := gjson.Get(cloud.targetBody, "extension").String(); got != "mp4" {
		t.Fatalf("extension = %q", got)
	}
	if got := gjson.Get(cloud.targetBody, "title").String(); got != "Take%202.MP4" {
		t.Fatalf("title = %q", got)
	}
}

func TestUploadAuthFailureSendsNothing(t *testing.T) {
	path := writeRecording(t, "clip.mp4", 10)
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request to %s", req.URL)
		return nil, errors.New("unexpected")
	})}
	rec := &recorder{}
	authErr := errors.New("sign-in failed")
	u := NewUploader(Options{Auth: &fakeAuth{err: authErr}, APIClient: client, TransferClient: client, Progress: rec, Clipboard: rec, Notifier: rec})

	_, err := u.Upload(context.Background(), Request{Path: path})
	if !errors.Is(err, authErr) {
		t.Fatalf("Upload() error = %v, want auth error", err)
	}
	if len(rec.progress)+len(rec.clipboard)+len(rec.notices) != 0 {
		t.Fatalf("side effects after auth failure: %+v", rec)
	}
}

func TestUploadTargetFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "http error", status: http.StatusUnauthorized, payload: `{"error":"unauthorized"}`},
		{name: "missing signed url", status: http.StatusOK, payload: `{"file_id":"f-1"}`},
		{name: "missing file id", status: http.StatusOK, payload: `{"signed_url":"https://storage.example.test/upload/x"}`},
		{name: "malformed", status: http.StatusOK, payload: `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := newFakeCloud()
			cloud.targetStatus = tt.status
			cloud.targetPayload = tt.payload
			client := handlerClient(cloud.engine)
			rec := &recorder{}
			u := NewUploader(Options{Auth: &fakeAuth{token: "JWT", host: "cloud.videocom.com"}, APIClient: client, TransferClient: client, Clipboard: rec})

			if _, err := u.Upload(context.Background(), Request{Path: writeRecording(t, "clip.mp4", 10)}); err == nil {
				t.Fatal("Upload() error = nil")
			}
			if cloud.transfers != 0 {
				t.Fatalf("transfers = %d, want 0", cloud.transfers)
			}
			if len(rec.clipboard) != 0 {
				t.Fatalf("clipboard = %v", rec.clipboard)
			}
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	auth := &fakeAuth{}
	u := NewUploader(Options{Auth: auth})
	if _, err := u.Upload(context.Background(), Request{Path: filepath.Join(t.TempDir(), "absent.mp4")}); err == nil {
		t.Fatal("Upload() error = nil")
	}
	if auth.calls != 0 {
		t.Fatalf("Authenticate calls = %d, want 0", auth.calls)
	}
}

func TestProgressReaderReportsFractions(t *testing.T) {
	var events []TransferEvent
	data := make([]byte, 1000)
	r := newProgressReader(&chunkReader{data: data, chunk: 300}, int64(len(data)), func(ev TransferEvent) {
		events = append(events, ev)
	})
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("copy: %v", err)
	}
	want := []float64{0.3, 0.6, 0.9, 1}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if strconv.FormatFloat(ev.Percent, 'f', 2, 64) != strconv.FormatFloat(want[i], 'f', 2, 64) {
			t.Fatalf("event %d percent = %v, want %v", i, ev.Percent, want[i])
		}
		if ev.Total != 1000 {
			t.Fatalf("event %d total = %d", i, ev.Total)
		}
	}
}

type chunkReader struct {
	data  []byte
	chunk int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := min(c.chunk, len(p), len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}
