package videocom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/videocom/videocom-share/internal/buildinfo"
)

const (
	refreshExtendPath = "/api/auth/refresh-extend"
	refreshPath       = "/api/auth/refresh"
	maxResponseBytes  = 1 << 20
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// tokenClient speaks the two refresh endpoints.
type tokenClient struct {
	doer Doer
}

// refreshExtend exchanges refreshToken for a rotated refresh token and a new expiry.
func (c *tokenClient) refreshExtend(ctx context.Context, host, refreshToken string) (*refreshExtendResponse, error) {
	const op = "refresh-extend"
	var out refreshExtendResponse
	if err := c.postRefreshToken(ctx, op, "https://"+host+refreshExtendPath, refreshToken, &out); err != nil {
		return nil, err
	}
	if out.Success != nil && !*out.Success {
		return nil, &AuthError{Op: op, Reason: "server rejected refresh token"}
	}
	if strings.TrimSpace(out.RefreshToken) == "" {
		return nil, &AuthError{Op: op, Reason: "response carries no refresh_token"}
	}
	return &out, nil
}

// refresh exchanges the rotated refresh token for an access token.
func (c *tokenClient) refresh(ctx context.Context, host, refreshToken string) (*refreshResponse, error) {
	const op = "refresh"
	var out refreshResponse
	if err := c.postRefreshToken(ctx, op, "https://"+host+refreshPath, refreshToken, &out); err != nil {
		return nil, err
	}
	if out.Success != nil && !*out.Success {
		return nil, &AuthError{Op: op, Reason: "server rejected refresh token"}
	}
	if strings.TrimSpace(out.JWT) == "" {
		return nil, &AuthError{Op: op, Reason: "response carries no jwt"}
	}
	return &out, nil
}

func (c *tokenClient) postRefreshToken(ctx context.Context, op, endpoint, refreshToken string, out any) error {
	body, err := sjson.SetBytes([]byte(`{}`), "refresh_token", refreshToken)
	if err != nil {
		return fmt.Errorf("videocom: %s: build request body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := c.doer.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("videocom %s: close body error: %v", op, errClose)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if !gjson.ValidBytes(data) {
		return &ParseError{Op: op, Err: errors.New("response is not valid JSON")}
	}
	if err = json.Unmarshal(data, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
