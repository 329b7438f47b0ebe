// Package upload publishes a recorded media file to a VideoCom cloud host and hands the
// resulting share link to the user.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/videocom/videocom-share/internal/buildinfo"
	"github.com/videocom/videocom-share/internal/logging"
	"golang.org/x/oauth2"
)

const (
	signedURLPath = "/api/file-uploader/resumeable-upload"
	uploadSource  = "web"

	maxResponseBytes = 1 << 20
	indeterminate    = -1
)

// User-facing messages.
const (
	ProgressUploading = "Uploading..."
	ProgressGetLink   = "Getting link..."
	LinkCopiedMessage = "Link to Media has been copied to the clipboard."
)

// Authenticator yields a valid access token for the cloud host.
type Authenticator interface {
	Authenticate(ctx context.Context) error
	AccessToken() string
	Host() string
}

// ProgressSink receives user-facing progress. A negative fraction means indeterminate.
type ProgressSink interface {
	SetProgress(text string, fraction float64)
}

// Clipboard stores text for pasting.
type Clipboard interface {
	WriteAll(text string) error
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(text string)
}

// Options wires an Uploader.
type Options struct {
	Auth Authenticator
	// APIClient sends the JSON API requests. Its transport is wrapped to carry the bearer token.
	APIClient *http.Client
	// TransferClient streams file bytes to the signed URL.
	TransferClient *http.Client
	Progress       ProgressSink
	Clipboard      Clipboard
	Notifier       Notifier
}

// Request names the file to publish. Title defaults to the file's base name and Format to
// its extension.
type Request struct {
	Path   string
	Title  string
	Format string
}

// SignedTarget is the upload destination issued by the cloud host.
type SignedTarget struct {
	SignedURL          string `json:"signed_url"`
	FileID             string `json:"file_id"`
	ThumbnailSignedURL string `json:"thumbnail_signed_url,omitempty"`
	SpecsSignedURL     string `json:"specs_signed_url,omitempty"`
}

// Result describes a published file.
type Result struct {
	FileID string
	Link   string
	Title  string
	Bytes  int64
	Target SignedTarget
}

// Uploader runs the authenticate, request target, stream, publish sequence.
type Uploader struct {
	auth           Authenticator
	apiClient      *http.Client
	transferClient *http.Client
	progress       ProgressSink
	clipboard      Clipboard
	notifier       Notifier
}

// NewUploader builds an Uploader from opts.
func NewUploader(opts Options) *Uploader {
	u := &Uploader{
		auth:           opts.Auth,
		apiClient:      opts.APIClient,
		transferClient: opts.TransferClient,
		progress:       opts.Progress,
		clipboard:      opts.Clipboard,
		notifier:       opts.Notifier,
	}
	if u.apiClient == nil {
		u.apiClient = &http.Client{}
	}
	if u.transferClient == nil {
		u.transferClient = &http.Client{}
	}
	return u
}

// MediaLink returns the share link for fileID on host.
func MediaLink(host, fileID string) string {
	return fmt.Sprintf("https://%s/media/%s", host, fileID)
}

// Upload publishes req.Path. Authentication failures abort before any upload request is sent.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload: %s is a directory", req.Path)
	}
	title, format := resolveRequest(req)
	entry := logging.Entry(ctx).WithField("file", req.Path)

	if err = u.auth.Authenticate(ctx); err != nil {
		return nil, err
	}
	host := u.auth.Host()

	target, err := u.requestTarget(ctx, host, u.auth.AccessToken(), title, format)
	if err != nil {
		return nil, err
	}
	entry = entry.WithField("file_id", target.FileID)
	entry.Debug("upload: signed target issued")

	u.setProgress(ProgressUploading, 0)
	if err = u.stream(ctx, req.Path, info.Size(), target.SignedURL); err != nil {
		return nil, err
	}
	entry.WithField("bytes", info.Size()).Info("upload: transfer complete")

	u.setProgress(ProgressGetLink, indeterminate)
	link := MediaLink(host, target.FileID)
	if u.clipboard != nil {
		if err = u.clipboard.WriteAll(link); err != nil {
			return nil, fmt.Errorf("upload: copy link to clipboard: %w", err)
		}
	}
	if u.notifier != nil {
		u.notifier.Notify(LinkCopiedMessage)
	}

	return &Result{
		FileID: target.FileID,
		Link:   link,
		Title:  title,
		Bytes:  info.Size(),
		Target: *target,
	}, nil
}

func resolveRequest(req Request) (title, format string) {
	title = req.Title
	if strings.TrimSpace(title) == "" {
		title = filepath.Base(req.Path)
	}
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(req.Format)), ".")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Path)), ".")
	}
	return title, format
}

// requestTarget asks the cloud host for a signed upload URL.
func (u *Uploader) requestTarget(ctx context.Context, host, token, title, format string) (*SignedTarget, error) {
	body := []byte(`{}`)
	var err error
	for _, field := range []struct {
		path  string
		value string
	}{
		{"extension", format},
		{"source", uploadSource},
		{"title", encodeURIComponent(Sanitize(title))},
	} {
		if body, err = sjson.SetBytes(body, field.path, field.value); err != nil {
			return nil, fmt.Errorf("upload: build target request: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+host+signedURLPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upload: create target request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := u.bearerClient(token).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload: target request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("upload target: close body error: %v", errClose)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("upload: read target response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload: target request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("upload: target response is not valid JSON")
	}
	var target SignedTarget
	if err = json.Unmarshal(data, &target); err != nil {
		return nil, fmt.Errorf("upload: parse target response: %w", err)
	}
	if target.SignedURL == "" || target.FileID == "" {
		return nil, errors.New("upload: target response carries no signed_url or file_id")
	}
	return &target, nil
}

func (u *Uploader) bearerClient(token string) *http.Client {
	return &http.Client{
		Timeout: u.apiClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   u.apiClient.Transport,
		},
	}
}

// stream sends the file to signedURL with an explicit Content-Length.
func (u *Uploader) stream(ctx context.Context, path string, size int64, signedURL string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() {
		if errClose := f.Close(); errClose != nil {
			log.Errorf("upload: close %s error: %v", path, errClose)
		}
	}()

	body := newProgressReader(f, size, func(ev TransferEvent) {
		u.setProgress(ProgressUploading, ev.Percent)
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, signedURL, body)
	if err != nil {
		return fmt.Errorf("upload: create transfer request: %w", err)
	}
	httpReq.ContentLength = size
	if size == 0 {
		httpReq.Body = http.NoBody
	}

	resp, err := u.transferClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload: transfer failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("upload transfer: close body error: %v", errClose)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("upload: transfer failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

func (u *Uploader) setProgress(text string, fraction float64) {
	if u.progress != nil {
		u.progress.SetProgress(text, fraction)
	}
}
