package videocom

import (
	"strings"
	"time"

	"github.com/videocom/videocom-share/internal/store"
)

// State is the credential condition that selects the authentication branch.
type State int

const (
	// NoCredential requires interactive sign-in.
	NoCredential State = iota
	// ValidCredential reuses the stored access token.
	ValidCredential
	// ExpiredCredential refreshes through the two-step exchange.
	ExpiredCredential
)

func (s State) String() string {
	switch s {
	case NoCredential:
		return "signed-out"
	case ValidCredential:
		return "valid"
	case ExpiredCredential:
		return "expired"
	default:
		return "unknown"
	}
}

// IsExpired reports whether the epoch-millisecond timestamp t is at or before now.
func IsExpired(t int64, now time.Time) bool {
	return t <= now.UnixMilli()
}

// ResolveState inspects s and returns the branch Authenticate will take.
// The refresh branch wins whenever a refresh token and an elapsed expiry are both stored.
// A stored expiry that cannot be read as a number never counts as elapsed.
func ResolveState(s store.Store, now time.Time) State {
	if s.Has(store.KeyRefreshToken) && s.Has(store.KeyTokenExpiryDate) {
		if expiry, ok := store.Int64(s, store.KeyTokenExpiryDate); ok && IsExpired(expiry, now) {
			return ExpiredCredential
		}
	}
	if s.Has(store.KeyAccessToken) && strings.TrimSpace(store.String(s, store.KeyAccessToken)) != "" {
		return ValidCredential
	}
	return NoCredential
}

// StatusReport summarizes the stored credential.
type StatusReport struct {
	State     State
	Host      string
	HasExpiry bool
	Expiry    time.Time
}
