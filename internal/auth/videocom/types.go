package videocom

import (
	"time"

	"github.com/videocom/videocom-share/internal/store"
)

// SessionLifetime is how long a token obtained through interactive sign-in is trusted.
const SessionLifetime = 30 * 24 * time.Hour

// Credential is the persisted token triple.
type Credential struct {
	AccessToken  string
	RefreshToken string
	// ExpiryDate is epoch milliseconds.
	ExpiryDate int64
}

func (c Credential) values() map[string]any {
	return map[string]any{
		store.KeyAccessToken:     c.AccessToken,
		store.KeyRefreshToken:    c.RefreshToken,
		store.KeyTokenExpiryDate: c.ExpiryDate,
	}
}

// refreshExtendResponse is the body of POST /api/auth/refresh-extend.
type refreshExtendResponse struct {
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Success      *bool  `json:"success"`
}

// refreshResponse is the body of POST /api/auth/refresh.
type refreshResponse struct {
	JWT       string `json:"jwt"`
	ExpiresAt int64  `json:"expires_at"`
	Success   *bool  `json:"success"`
}

// HandshakeAuth is the terminal message of the realtime sign-in exchange.
type HandshakeAuth struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	RefreshToken string `json:"refresh_token"`
	JWT          string `json:"jwt"`
	Cookie       string `json:"cookie"`
}
