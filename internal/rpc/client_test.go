// ABOUTME: Tests for the remote procedure client against an httptest backend
// ABOUTME: Covers envelope round-trip, result unwrapping, and error shaping

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL: srv.URL + "/",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestInvoke_SubmitsPayloadAsDataEnvelope(t *testing.T) {
	payload := map[string]any{
		"userId": "u1",
		"orgId":  "o1",
		"date":   "2026-10-19",
		"nested": map[string]any{"a": []any{1.0, "two"}},
	}

	var observed map[string]any
	var path, contentType string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&observed))
		_, _ = w.Write([]byte(`{"result":{"ok":true}}`))
	})

	_, err := client.Invoke(context.Background(), "getTasks", payload)
	require.NoError(t, err)

	assert.Equal(t, "/getTasks", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]any{"data": payload}, observed)
}

func TestInvoke_ReturnsResultField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"success":true,"tasks":[]}}`))
	})

	raw, err := client.Invoke(context.Background(), "getTasks", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"tasks":[]}`, string(raw))
}

func TestInvoke_ReturnsWholeBodyWithoutResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"locations":[]}`))
	})

	raw, err := client.Invoke(context.Background(), "getLocations", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"locations":[]}`, string(raw))
}

func TestInvoke_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("org suspended: token eyJhbGciOi..."))
	})

	_, err := client.Invoke(context.Background(), "authenticateUser", map[string]string{})
	require.Error(t, err)

	var rce *RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, "authenticateUser", rce.Procedure)
	assert.Equal(t, http.StatusForbidden, rce.StatusCode)
	assert.Equal(t, "org suspended: token eyJhbGciOi...", rce.Body)
	assert.NotContains(t, err.Error(), "org suspended", "body must stay out of the error message")
}

func TestInvoke_InvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway</html>"))
	})

	_, err := client.Invoke(context.Background(), "getTasks", nil)

	var rce *RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, http.StatusOK, rce.StatusCode)
	assert.Contains(t, rce.Error(), "not valid JSON")
}

func TestInvoke_WithBearer(t *testing.T) {
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})

	_, err := client.Invoke(context.Background(), "completeTask", map[string]string{"taskId": "t1"}, WithBearer("access-123"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-123", authHeader)
}

func TestInvoke_NoBearerByDefault(t *testing.T) {
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Invoke(context.Background(), "getTasks", nil)
	require.NoError(t, err)
	assert.Empty(t, authHeader)
}

type failingHTTP struct{ err error }

func (f failingHTTP) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestInvoke_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	client, err := NewClient(Config{
		BaseURL:    "https://backend.invalid",
		HTTPClient: failingHTTP{err: boom},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	_, err = client.Invoke(context.Background(), "getTasks", nil)
	require.ErrorIs(t, err, boom)
}

func TestInvoke_SingleAttempt(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Invoke(context.Background(), "getTasks", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
