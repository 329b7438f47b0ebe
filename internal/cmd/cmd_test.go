package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/videocom/videocom-share/internal/auth/videocom"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/store"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{"PGSTORE_DSN", "pgstore_dsn", "OBJECTSTORE_ENDPOINT", "objectstore_endpoint", "writable_path"} {
		t.Setenv(key, "")
	}
	t.Setenv("WRITABLE_PATH", dir)
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfigOptional("", true)
	if err != nil {
		t.Fatalf("LoadConfigOptional() error = %v", err)
	}
	return cfg
}

func TestObjectStoreConfigFromEnv(t *testing.T) {
	t.Setenv("OBJECTSTORE_ACCESS_KEY", "access")
	t.Setenv("OBJECTSTORE_SECRET_KEY", "secret")
	t.Setenv("OBJECTSTORE_BUCKET", "videocom")
	t.Setenv("OBJECTSTORE_PREFIX", "team-a")

	tests := []struct {
		endpoint string
		want     string
		ssl      bool
		wantErr  bool
	}{
		{endpoint: "minio.internal:9000", want: "minio.internal:9000", ssl: true},
		{endpoint: "http://minio.internal:9000/", want: "minio.internal:9000", ssl: false},
		{endpoint: "https://s3.example.test", want: "s3.example.test", ssl: true},
		{endpoint: "ftp://s3.example.test", wantErr: true},
	}
	for _, tt := range tests {
		got, err := objectStoreConfigFromEnv(tt.endpoint)
		if tt.wantErr {
			if err == nil {
				t.Errorf("objectStoreConfigFromEnv(%q) error = nil", tt.endpoint)
			}
			continue
		}
		if err != nil {
			t.Fatalf("objectStoreConfigFromEnv(%q) error = %v", tt.endpoint, err)
		}
		if got.Endpoint != tt.want || got.UseSSL != tt.ssl || got.Bucket != "videocom" || got.Prefix != "team-a" || !got.PathStyle {
			t.Errorf("objectStoreConfigFromEnv(%q) = %+v", tt.endpoint, got)
		}
	}
}

func TestFileStorePathPrefersWritablePath(t *testing.T) {
	dir := isolateEnv(t)
	got, err := fileStorePath(testConfig(t))
	if err != nil {
		t.Fatalf("fileStorePath() error = %v", err)
	}
	if got != filepath.Join(dir, store.DefaultFileName) {
		t.Fatalf("fileStorePath() = %s", got)
	}

	t.Setenv("WRITABLE_PATH", "")
	cfg := testConfig(t)
	cfg.AuthDir = filepath.Join(dir, "auth")
	if got, _ = fileStorePath(cfg); got != filepath.Join(dir, "auth", store.DefaultFileName) {
		t.Fatalf("fileStorePath() with auth-dir = %s", got)
	}
}

func TestDoStatusAndLogout(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, store.DefaultFileName)
	expiry := time.Now().Add(48 * time.Hour).UnixMilli()
	doc := fmt.Sprintf(`{"CLOUD_HOST":"media.example.test","ACCESS_TOKEN":"jwt","REFRESH_TOKEN":"r","TOKEN_EXPIRY_DATE":%d}`, expiry)
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write store: %v", err)
	}

	var out bytes.Buffer
	if err := DoStatus(context.Background(), testConfig(t), &Options{Out: &out}); err != nil {
		t.Fatalf("DoStatus() error = %v", err)
	}
	for _, want := range []string{"media.example.test", "valid", path} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("status output %q missing %q", out.String(), want)
		}
	}

	out.Reset()
	if err := DoLogout(context.Background(), testConfig(t), &Options{Out: &out}); err != nil {
		t.Fatalf("DoLogout() error = %v", err)
	}
	if !strings.Contains(out.String(), "Signed out of media.example.test") {
		t.Fatalf("logout output = %q", out.String())
	}

	reopened, err := store.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	for _, key := range store.CredentialKeys {
		if reopened.Has(key) {
			t.Fatalf("%s still stored after logout", key)
		}
	}
	if store.CloudHost(reopened) != "media.example.test" {
		t.Fatal("logout removed the cloud host")
	}
}

func TestNewSessionSeedsCloudHost(t *testing.T) {
	dir := isolateEnv(t)
	cfg := testConfig(t)
	cfg.CloudHost = "staging.videocom.test"

	sess, err := newSession(context.Background(), cfg, &Options{Out: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	sess.Close()

	reopened, err := store.NewFileStore(filepath.Join(dir, store.DefaultFileName))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if got := store.CloudHost(reopened); got != "staging.videocom.test" {
		t.Fatalf("CLOUD_HOST = %q", got)
	}
}

func TestDoUploadValidatesArguments(t *testing.T) {
	isolateEnv(t)
	if err := DoUpload(context.Background(), testConfig(t), nil, nil); err == nil {
		t.Fatal("DoUpload() without files error = nil")
	}
	err := DoUpload(context.Background(), testConfig(t), []string{"a.mp4", "b.mp4"}, &Options{Title: "x", Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("DoUpload() with -title and two files error = nil")
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: &videocom.NetworkError{Op: "refresh"}, want: true},
		{err: fmt.Errorf("wrapped: %w", &videocom.HandshakeError{Op: "auth handshake", Err: context.DeadlineExceeded}), want: true},
		{err: &videocom.AuthError{Op: "refresh", Reason: "rejected"}, want: true},
		{err: &videocom.ParseError{Op: "refresh", Err: errors.New("bad")}, want: true},
		{err: errors.New("upload: transfer failed with status 500"), want: false},
	}
	for _, tt := range tests {
		if got := isAuthFailure(tt.err); got != tt.want {
			t.Errorf("isAuthFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
