// Package auth provides a client for the PDVD authentication endpoints.
//
// Every call issues exactly one HTTP request. Nothing is retried, cached or
// validated locally: transport failures are returned as-is and non-2xx
// responses are returned as *HTTPError.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ortelius/pdvd-auth/model"
	"go.uber.org/zap"
)

// Endpoint paths, relative to the client's base URL
const (
	LoginPath          = "/auth/login"
	MePath             = "/auth/me"
	ChangePasswordPath = "/auth/change-password"
	LogoutPath         = "/auth/logout"
)

// DefaultUserAgent is sent unless WithUserAgent overrides it
const DefaultUserAgent = "pdvd-auth/1.0"

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auth endpoints of one backend
type Client struct {
	baseURL   string
	doer      Doer
	logger    *zap.Logger
	userAgent string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the transport used to send requests
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.doer = doer
		}
	}
}

// WithLogger sets the logger used for per-request debug lines
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// New creates a client for the API rooted at baseURL (e.g. http://localhost:8080/api/v1)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		doer:      &http.Client{Timeout: 10 * time.Second},
		logger:    zap.NewNop(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges a username and password for a session
func (c *Client) Login(ctx context.Context, username, password string) (*model.Session, error) {
	body := model.Credentials{Username: username, Password: password}

	var session model.Session
	if err := c.do(ctx, http.MethodPost, LoginPath, "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FetchSelf returns the profile of the user the token belongs to
func (c *Client) FetchSelf(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, MePath, token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword changes the password of the user the token belongs to
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword, confirmPassword string) error {
	body := model.PasswordChange{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
		ConfirmPassword: confirmPassword,
	}
	return c.do(ctx, http.MethodPost, ChangePasswordPath, token, body, nil)
}

// Logout ends the server side session for the token
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, LogoutPath, token, nil, nil)
}

// do sends one request and decodes a 2xx JSON body into out (when out is non-nil)
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("auth request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("auth request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newHTTPError(method, path, resp, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
