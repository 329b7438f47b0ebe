package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
)

func TestInt64ReadsEveryNumericShape(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		wantOK bool
	}{
		{"int64", int64(1730000000000), 1730000000000, true},
		{"int", 42, 42, true},
		{"float64", float64(1730000000000), 1730000000000, true},
		{"json number", json.Number("1730000000000"), 1730000000000, true},
		{"json float number", json.Number("1.5e3"), 1500, true},
		{"numeric string", " 17 ", 17, true},
		{"garbage string", "soon", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore(map[string]any{KeyTokenExpiryDate: tt.value})
			got, ok := Int64(s, KeyTokenExpiryDate)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Int64() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, ok := Int64(NewMemoryStore(nil), KeyTokenExpiryDate); ok {
		t.Fatal("missing key must report false")
	}
}

func TestStringAndCloudHost(t *testing.T) {
	s := NewMemoryStore(map[string]any{KeyAccessToken: "tok", KeyRefreshToken: 12})
	if got := String(s, KeyAccessToken); got != "tok" {
		t.Fatalf("String = %q", got)
	}
	if got := String(s, KeyRefreshToken); got != "" {
		t.Fatalf("non-string value must read as empty, got %q", got)
	}
	if got := CloudHost(s); got != "cloud.videocom.com" {
		t.Fatalf("default host = %q", got)
	}
	if err := s.Set(KeyCloudHost, "https://eu.videocom.com/"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := CloudHost(s); got != "eu.videocom.com" {
		t.Fatalf("normalized host = %q", got)
	}
}

func TestEnsureDefaultKeepsExistingValue(t *testing.T) {
	s := NewMemoryStore(map[string]any{KeyCloudHost: "a.example"})
	if err := EnsureDefault(s, KeyCloudHost, "b.example"); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if got := String(s, KeyCloudHost); got != "a.example" {
		t.Fatalf("host = %q, want existing value", got)
	}

	empty := NewMemoryStore(nil)
	if err := EnsureDefault(empty, KeyCloudHost, "b.example"); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	if got := String(empty, KeyCloudHost); got != "b.example" {
		t.Fatalf("host = %q, want default", got)
	}
}

func TestSetManyIsAllOrNothingWhenPersistFails(t *testing.T) {
	persistErr := errors.New("disk full")
	s := newMapStore(map[string]any{KeyAccessToken: "old", KeyRefreshToken: "r0"}, func(map[string]any, []string, []string) error {
		return persistErr
	})

	err := s.SetMany(map[string]any{KeyAccessToken: "new", KeyRefreshToken: "r1", KeyTokenExpiryDate: int64(5)})
	if !errors.Is(err, persistErr) {
		t.Fatalf("SetMany error = %v, want %v", err, persistErr)
	}
	if got := String(s, KeyAccessToken); got != "old" {
		t.Fatalf("access token = %q, want untouched", got)
	}
	if got := String(s, KeyRefreshToken); got != "r0" {
		t.Fatalf("refresh token = %q, want untouched", got)
	}
	if s.Has(KeyTokenExpiryDate) {
		t.Fatal("expiry must not be stored after a failed commit")
	}
}

func TestDeleteReportsRemovedKeysOnly(t *testing.T) {
	var removedKeys []string
	s := newMapStore(map[string]any{KeyAccessToken: "a", KeyCloudHost: "h"}, func(_ map[string]any, _ []string, removed []string) error {
		removedKeys = append(removedKeys, removed...)
		return nil
	})
	if err := s.Delete(CredentialKeys...); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(removedKeys) != 1 || removedKeys[0] != KeyAccessToken {
		t.Fatalf("removed = %v", removedKeys)
	}
	if s.Has(KeyAccessToken) || !s.Has(KeyCloudHost) {
		t.Fatalf("unexpected snapshot: %v", s.snapshot())
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if s.Has(KeyAccessToken) {
		t.Fatal("new store must be empty")
	}
	err = s.SetMany(map[string]any{
		KeyAccessToken:     "jwt-1",
		KeyRefreshToken:    "rt-1",
		KeyTokenExpiryDate: int64(1893456000000),
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if gjson.GetBytes(raw, KeyTokenExpiryDate).Int() != 1893456000000 {
		t.Fatalf("unexpected document: %s", raw)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("document mode = %v, want 0600", perm)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := String(reopened, KeyAccessToken); got != "jwt-1" {
		t.Fatalf("access token = %q", got)
	}
	if got, ok := Int64(reopened, KeyTokenExpiryDate); !ok || got != 1893456000000 {
		t.Fatalf("expiry = (%d, %v)", got, ok)
	}

	if err = reopened.Delete(CredentialKeys...); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	again, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen after delete: %v", err)
	}
	if again.Has(KeyAccessToken) || again.Has(KeyRefreshToken) || again.Has(KeyTokenExpiryDate) {
		t.Fatal("credential keys must be gone after Delete")
	}
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewFileStore("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
