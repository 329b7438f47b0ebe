package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/misc"
)

const (
	objectStoreDocumentKey = "config/" + DefaultFileName
	objectStoreOpTimeout   = 30 * time.Second
)

// ObjectStoreConfig captures configuration for the object storage backed store.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
	PathStyle bool
}

// ObjectStore persists the configuration document in an S3-compatible bucket so several
// machines can share one sign-in.
type ObjectStore struct {
	*mapStore
	client *minio.Client
	cfg    ObjectStoreConfig
}

// NewObjectStore connects to the bucket, creating it when missing, and loads the document.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("object store: access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store: secret key is required")
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("object store: create client: %w", err)
	}

	s := &ObjectStore{client: client, cfg: cfg}
	if err = s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	values, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}
	s.mapStore = newMapStore(values, s.write)
	return s, nil
}

// Location describes where the document lives, for status output.
func (s *ObjectStore) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.prefixedKey(objectStoreDocumentKey))
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("object store: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("object store: create bucket: %w", err)
	}
	return nil
}

func (s *ObjectStore) fetchDocument(ctx context.Context) (map[string]any, error) {
	key := s.prefixedKey(objectStoreDocumentKey)
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isObjectNotFound(err) {
			log.Debugf("object store: %s not found, starting empty", key)
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("object store: stat document: %w", err)
	}
	object, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("object store: fetch document: %w", err)
	}
	defer func() {
		if errClose := object.Close(); errClose != nil {
			log.Errorf("object store: close document reader: %v", errClose)
		}
	}()
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("object store: read document: %w", err)
	}
	values, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("object store: parse document: %w", err)
	}
	return values, nil
}

func (s *ObjectStore) write(next map[string]any, _, _ []string) error {
	misc.LogSavingCredentials(s.Location())
	raw, err := encodeDocument(next)
	if err != nil {
		return fmt.Errorf("object store: marshal document: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), objectStoreOpTimeout)
	defer cancel()

	fullKey := s.prefixedKey(objectStoreDocumentKey)
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, fullKey, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("object store: put object %s: %w", fullKey, err)
	}
	return nil
}

func (s *ObjectStore) prefixedKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + "/" + key
}

func isObjectNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}
