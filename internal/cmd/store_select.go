package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/store"
	"github.com/videocom/videocom-share/internal/util"
)

const storeInitTimeout = 30 * time.Second

// openedStore is the credential store chosen for this run.
type openedStore struct {
	store.Store
	location string
	close    func()
}

// openStore selects the credential backend from the environment. PGSTORE_DSN selects
// PostgreSQL, OBJECTSTORE_ENDPOINT an S3-compatible bucket, and otherwise the JSON file
// in the auth directory is used.
func openStore(ctx context.Context, cfg *config.Config) (*openedStore, error) {
	if dsn, ok := util.LookupEnv("PGSTORE_DSN", "pgstore_dsn"); ok {
		pgCfg := store.PostgresStoreConfig{DSN: dsn}
		if value, ok := util.LookupEnv("PGSTORE_SCHEMA", "pgstore_schema"); ok {
			pgCfg.Schema = value
		}
		if value, ok := util.LookupEnv("PGSTORE_TABLE", "pgstore_table"); ok {
			pgCfg.Table = value
		}
		initCtx, cancel := context.WithTimeout(ctx, storeInitTimeout)
		defer cancel()
		pg, err := store.NewPostgresStore(initCtx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres credential store: %w", err)
		}
		log.Debugf("postgres-backed credential store enabled: %s", pg.Location())
		return &openedStore{Store: pg, location: pg.Location(), close: func() {
			if errClose := pg.Close(); errClose != nil {
				log.Errorf("postgres credential store: close error: %v", errClose)
			}
		}}, nil
	}

	if endpoint, ok := util.LookupEnv("OBJECTSTORE_ENDPOINT", "objectstore_endpoint"); ok {
		objCfg, err := objectStoreConfigFromEnv(endpoint)
		if err != nil {
			return nil, err
		}
		initCtx, cancel := context.WithTimeout(ctx, storeInitTimeout)
		defer cancel()
		obj, err := store.NewObjectStore(initCtx, objCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object credential store: %w", err)
		}
		log.Debugf("object-backed credential store enabled, bucket: %s", objCfg.Bucket)
		return &openedStore{Store: obj, location: obj.Location(), close: func() {}}, nil
	}

	path, err := fileStorePath(cfg)
	if err != nil {
		return nil, err
	}
	fs, err := store.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return &openedStore{Store: fs, location: fs.Path(), close: func() {}}, nil
}

func fileStorePath(cfg *config.Config) (string, error) {
	if base := util.WritablePath(); base != "" {
		return filepath.Join(base, store.DefaultFileName), nil
	}
	authDir, err := util.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		return "", err
	}
	if authDir == "" {
		wd, errWd := os.Getwd()
		if errWd != nil {
			return "", fmt.Errorf("failed to get working directory: %w", errWd)
		}
		authDir = wd
	}
	return filepath.Join(authDir, store.DefaultFileName), nil
}

func objectStoreConfigFromEnv(endpoint string) (store.ObjectStoreConfig, error) {
	resolvedEndpoint := strings.TrimSpace(endpoint)
	useSSL := true
	if strings.Contains(resolvedEndpoint, "://") {
		parsed, errParse := url.Parse(resolvedEndpoint)
		if errParse != nil {
			return store.ObjectStoreConfig{}, fmt.Errorf("failed to parse object store endpoint %q: %w", endpoint, errParse)
		}
		switch strings.ToLower(parsed.Scheme) {
		case "http":
			useSSL = false
		case "https":
			useSSL = true
		default:
			return store.ObjectStoreConfig{}, fmt.Errorf("unsupported object store scheme %q (only http and https are allowed)", parsed.Scheme)
		}
		if parsed.Host == "" {
			return store.ObjectStoreConfig{}, fmt.Errorf("object store endpoint %q is missing host information", endpoint)
		}
		resolvedEndpoint = parsed.Host
	}

	objCfg := store.ObjectStoreConfig{
		Endpoint:  strings.TrimRight(resolvedEndpoint, "/"),
		UseSSL:    useSSL,
		PathStyle: true,
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_ACCESS_KEY", "objectstore_access_key"); ok {
		objCfg.AccessKey = value
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_SECRET_KEY", "objectstore_secret_key"); ok {
		objCfg.SecretKey = value
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_BUCKET", "objectstore_bucket"); ok {
		objCfg.Bucket = value
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_REGION", "objectstore_region"); ok {
		objCfg.Region = value
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_PREFIX", "objectstore_prefix"); ok {
		objCfg.Prefix = value
	}
	if value, ok := util.LookupEnv("OBJECTSTORE_PATH_STYLE", "objectstore_path_style"); ok {
		if pathStyle, errParse := strconv.ParseBool(value); errParse == nil {
			objCfg.PathStyle = pathStyle
		}
	}
	return objCfg, nil
}
