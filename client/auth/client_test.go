package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ortelius/pdvd-auth/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// recorder is an httptest server that replies with a canned status and body
// and keeps every request it saw.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
	server   *httptest.Server
}

func newRecorder(t *testing.T, status int, body string) *recorder {
	t.Helper()
	r := &recorder{status: status, body: body}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		payload, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, recordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Header: req.Header.Clone(),
			Body:   payload,
		})
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(r.status)
		_, _ = io.WriteString(w, r.body)
	}))
	t.Cleanup(r.server.Close)
	return r
}

func (r *recorder) only(t *testing.T) recordedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.requests, 1, "expected exactly one request")
	return r.requests[0]
}

type failingDoer struct {
	err   error
	calls int
}

func (d *failingDoer) Do(_ *http.Request) (*http.Response, error) {
	d.calls++
	return nil, d.err
}

func TestLogin_SendsCredentialsAndReturnsSession(t *testing.T) {
	rec := newRecorder(t, http.StatusOK,
		`{"access_token":"tok123","token_type":"bearer","username":"alice"}`)
	client := New(rec.server.URL)

	session, err := client.Login(context.Background(), "alice", "pass")
	require.NoError(t, err)
	assert.Equal(t, &model.Session{AccessToken: "tok123", TokenType: "bearer", Username: "alice"}, session)

	req := rec.only(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/login", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, map[string]string{"username": "alice", "password": "pass"}, sent)
}

func TestLogin_TransportErrorIsReturnedUnchanged(t *testing.T) {
	transportErr := errors.New("connection refused")
	doer := &failingDoer{err: transportErr}
	client := New("http://backend.invalid/api/v1", WithHTTPClient(doer))

	session, err := client.Login(context.Background(), "alice", "pass")
	assert.Nil(t, session)
	assert.Same(t, transportErr, err)
	assert.Equal(t, 1, doer.calls)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	rec := newRecorder(t, http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
	client := New(rec.server.URL)

	session, err := client.Login(context.Background(), "alice", "wrong")
	assert.Nil(t, session)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "Invalid credentials", httpErr.Message)
	assert.Equal(t, http.MethodPost, httpErr.Method)
	assert.Equal(t, LoginPath, httpErr.Path)
	assert.True(t, IsUnauthorized(err))
	rec.only(t)
}

func TestFetchSelf_SendsBearerToken(t *testing.T) {
	rec := newRecorder(t, http.StatusOK,
		`{"username":"alice","email":"alice@example.com","role":"editor","orgs":["ortelius"],"github_connected":true}`)
	client := New(rec.server.URL + "/")

	user, err := client.FetchSelf(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, &model.User{
		Username:        "alice",
		Email:           "alice@example.com",
		Role:            "editor",
		Orgs:            []string{"ortelius"},
		GitHubConnected: true,
	}, user)

	req := rec.only(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/auth/me", req.Path)
	assert.Equal(t, "Bearer tok123", req.Header.Get("Authorization"))
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestFetchSelf_Unauthorized(t *testing.T) {
	rec := newRecorder(t, http.StatusUnauthorized, `{"error":"Not authenticated"}`)
	client := New(rec.server.URL)

	user, err := client.FetchSelf(context.Background(), "expired")
	assert.Nil(t, user)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "Not authenticated")
	rec.only(t)
}

func TestChangePassword_SendsFieldsAndBearer(t *testing.T) {
	rec := newRecorder(t, http.StatusOK, `{"message":"Password changed successfully"}`)
	client := New(rec.server.URL)

	err := client.ChangePassword(context.Background(), "tok123", "old-pass", "new-pass-1", "new-pass-1")
	require.NoError(t, err)

	req := rec.only(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/change-password", req.Path)
	assert.Equal(t, "Bearer tok123", req.Header.Get("Authorization"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, map[string]string{
		"current_password": "old-pass",
		"new_password":     "new-pass-1",
		"confirm_password": "new-pass-1",
	}, sent)
}

func TestChangePassword_ValidationFailure(t *testing.T) {
	rec := newRecorder(t, http.StatusUnprocessableEntity, `{"error":"Passwords do not match"}`)
	client := New(rec.server.URL)

	err := client.ChangePassword(context.Background(), "tok123", "old-pass", "new-pass-1", "other")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "POST /auth/change-password: 422 Unprocessable Entity: Passwords do not match", err.Error())
	rec.only(t)
}

func TestChangePassword_DoesNotValidateLocally(t *testing.T) {
	rec := newRecorder(t, http.StatusOK, `{}`)
	client := New(rec.server.URL)

	require.NoError(t, client.ChangePassword(context.Background(), "", "", "", ""))

	req := rec.only(t)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestLogout_SendsBearer(t *testing.T) {
	rec := newRecorder(t, http.StatusOK, `{"message":"Logged out successfully"}`)
	client := New(rec.server.URL)

	require.NoError(t, client.Logout(context.Background(), "tok123"))

	req := rec.only(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/logout", req.Path)
	assert.Equal(t, "Bearer tok123", req.Header.Get("Authorization"))
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	rec := newRecorder(t, http.StatusOK, `not json`)
	client := New(rec.server.URL)

	_, err := client.Login(context.Background(), "alice", "pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode /auth/login response")
	assert.Equal(t, 0, StatusCode(err))
}

func TestDo_PlainTextErrorBody(t *testing.T) {
	rec := newRecorder(t, http.StatusBadGateway, "upstream unavailable\n")
	client := New(rec.server.URL, WithUserAgent("pdvd-test"))

	_, err := client.FetchSelf(context.Background(), "tok")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream unavailable", httpErr.Message)
	assert.Equal(t, "pdvd-test", rec.only(t).Header.Get("User-Agent"))
}

func TestDo_CancelledContext(t *testing.T) {
	rec := newRecorder(t, http.StatusOK, `{}`)
	client := New(rec.server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSelf(ctx, "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	client := New("http://localhost:8080/api/v1/")
	assert.Equal(t, "http://localhost:8080/api/v1", client.BaseURL())
}
