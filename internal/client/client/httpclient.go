package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

const (
	pathLogin   = "/api/login"
	pathRefresh = "/api/refresh"
	pathLogout  = "/api/logout"
	pathSync    = "/api/sync"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// HTTPClient talks to the sync API over HTTP with JSON bodies.
type HTTPClient struct {
	http *http.Client
}

// NewHTTPClient returns a client whose requests time out after timeout.
// A non-positive timeout falls back to 15 seconds.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{http: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Login(ctx context.Context, server string, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.doJSON(ctx, server, pathLogin, "", req, &resp); err != nil {
		var se *ServerError
		if errors.As(err, &se) || errors.Is(err, ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrBadResponse)
	}
	return &resp, nil
}

func (c *HTTPClient) RefreshToken(ctx context.Context, server, refreshToken, deviceID string) (string, error) {
	var resp models.RefreshResponse
	req := models.RefreshRequest{RefreshToken: refreshToken, DeviceID: deviceID}
	if err := c.doJSON(ctx, server, pathRefresh, "", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenRefresh)
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) Logout(ctx context.Context, server, accessToken, deviceID string) error {
	return c.doJSON(ctx, server, pathLogout, accessToken, models.LogoutRequest{DeviceID: deviceID}, nil)
}

func (c *HTTPClient) Sync(ctx context.Context, server, accessToken string, req *models.SyncRequest) (*models.SyncResponse, error) {
	var resp models.SyncResponse
	if err := c.doJSON(ctx, server, pathSync, accessToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON POSTs body as JSON to server+path and decodes a 2xx response into
// out (when out is non-nil). 401 maps to ErrUnauthorized, other non-2xx
// statuses to *ServerError, transport failures to ErrUnavailable.
func (c *HTTPClient) doJSON(ctx context.Context, server, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(server, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeServerError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

func decodeServerError(resp *http.Response) error {
	se := &ServerError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload models.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil {
		se.Code = payload.Error
		se.Message = payload.Message
	} else {
		se.Message = strings.TrimSpace(string(raw))
	}
	return se
}
