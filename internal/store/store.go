// Package store persists the key-value configuration that carries the VideoCom credential
// and cloud host across runs. Backends share one in-memory snapshot and differ only in how a
// committed snapshot is persisted: a local JSON file, an S3-compatible bucket, or PostgreSQL.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/videocom/videocom-share/internal/config"
)

// Keys understood by the authenticator and the uploader.
const (
	KeyAccessToken     = "ACCESS_TOKEN"
	KeyRefreshToken    = "REFRESH_TOKEN"
	KeyTokenExpiryDate = "TOKEN_EXPIRY_DATE"
	KeyCloudHost       = "CLOUD_HOST"
)

// CredentialKeys lists the keys removed on sign-out.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiryDate}

// Store is a persistent key-value configuration.
// SetMany commits every value in a single persisted write: either all of them are stored or none.
type Store interface {
	Get(key string) (any, bool)
	Has(key string) bool
	Set(key string, value any) error
	SetMany(values map[string]any) error
	Delete(keys ...string) error
}

// persistFunc writes a committed snapshot. changed and removed name the keys that differ from
// the previous snapshot so row-oriented backends can write incrementally.
type persistFunc func(next map[string]any, changed, removed []string) error

// mapStore is the snapshot shared by every backend.
type mapStore struct {
	mu      sync.RWMutex
	values  map[string]any
	persist persistFunc
}

func newMapStore(initial map[string]any, persist persistFunc) *mapStore {
	values := make(map[string]any, len(initial))
	maps.Copy(values, initial)
	return &mapStore{values: values, persist: persist}
}

// NewMemoryStore returns a Store that never leaves the process.
func NewMemoryStore(initial map[string]any) Store {
	return newMapStore(initial, nil)
}

func (s *mapStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *mapStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *mapStore) Set(key string, value any) error {
	return s.SetMany(map[string]any{key: value})
}

func (s *mapStore) SetMany(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]any, len(s.values)+len(values))
	maps.Copy(next, s.values)
	changed := make([]string, 0, len(values))
	for k, v := range values {
		next[k] = v
		changed = append(changed, k)
	}
	return s.commitLocked(next, changed, nil)
}

func (s *mapStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]any, len(s.values))
	maps.Copy(next, s.values)
	removed := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			removed = append(removed, k)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	return s.commitLocked(next, nil, removed)
}

// commitLocked swaps in next only after it has been persisted.
func (s *mapStore) commitLocked(next map[string]any, changed, removed []string) error {
	if s.persist != nil {
		if err := s.persist(next, changed, removed); err != nil {
			return err
		}
	}
	s.values = next
	return nil
}

func (s *mapStore) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// String returns the string stored under key, or "" when absent or not a string.
func String(s Store, key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return ""
	}
}

// Int64 returns the integer stored under key. The second result is false when the key is
// absent or its value cannot be read as a number.
func Int64(s Store, key string) (int64, bool) {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch typed := v.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int64(typed), true
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, true
		}
		if f, err := typed.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// CloudHost returns the configured host, falling back to the default VideoCom host.
func CloudHost(s Store) string {
	if host := config.NormalizeHost(String(s, KeyCloudHost)); host != "" {
		return host
	}
	return config.DefaultCloudHost
}

// EnsureDefault stores value under key unless the key already exists.
func EnsureDefault(s Store, key string, value any) error {
	if s.Has(key) {
		return nil
	}
	return s.Set(key, value)
}

func decodeDocument(data []byte) (map[string]any, error) {
	values := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func encodeDocument(values map[string]any) ([]byte, error) {
	return json.MarshalIndent(values, "", "  ")
}
