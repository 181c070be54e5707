// internal/common/http/server_test.go
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehmat-agent/internal/common/config"
	"rehmat-agent/internal/common/livekit"
	"rehmat-agent/internal/common/logger"
)

type mockTokenMinter struct {
	CustomerTokenFunc func() (*livekit.TokenResponse, error)
}

func (m *mockTokenMinter) CustomerToken() (*livekit.TokenResponse, error) {
	return m.CustomerTokenFunc()
}

func serve(t *testing.T, opts ServerOptions, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	opts.Logger = logger.NewTestLogger(t)
	rec := httptest.NewRecorder()
	NewServer(opts).Handler().ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader("")))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	ready := false
	opts := ServerOptions{Ready: func() bool { return ready }}

	rec := serve(t, opts, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = serve(t, opts, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready = true
	rec = serve(t, opts, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, ServerOptions{}, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTokenRoute(t *testing.T) {
	tests := []struct {
		name     string
		minter   *mockTokenMinter
		wantCode int
		wantBody string
	}{
		{
			name: "issued",
			minter: &mockTokenMinter{CustomerTokenFunc: func() (*livekit.TokenResponse, error) {
				return &livekit.TokenResponse{Token: "jwt", URL: "wss://lk", RoomName: "rehmat-call-abc"}, nil
			}},
			wantCode: http.StatusOK,
			wantBody: `{"token":"jwt","url":"wss://lk","roomName":"rehmat-call-abc"}`,
		},
		{
			name: "misconfigured",
			minter: &mockTokenMinter{CustomerTokenFunc: func() (*livekit.TokenResponse, error) {
				return nil, livekit.ErrMisconfigured
			}},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Server misconfigured"}`,
		},
		{
			name: "signing failure",
			minter: &mockTokenMinter{CustomerTokenFunc: func() (*livekit.TokenResponse, error) {
				return nil, errors.New("bad key")
			}},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to create token"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, ServerOptions{Tokens: tt.minter}, http.MethodGet, "/api/token")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWebhookRouteIsPostOnly(t *testing.T) {
	called := 0
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})

	rec := serve(t, ServerOptions{Webhook: hook}, http.MethodPost, "/livekit/webhook")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, ServerOptions{Webhook: hook}, http.MethodGet, "/livekit/webhook")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 1, called)
}

func TestTokenRouteWithRealIssuer(t *testing.T) {
	issuer := livekit.NewTokenIssuer(config.LiveKitConfig{
		URL:        "wss://rehmat.livekit.cloud",
		APIKey:     "APItestkey",
		APISecret:  "a-test-secret-that-is-long-enough-for-hs256",
		RoomPrefix: "rehmat-call-",
	})
	rec := serve(t, ServerOptions{Tokens: issuer}, http.MethodGet, "/api/token")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["roomName"], "rehmat-call-"))
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "wss://rehmat.livekit.cloud", body["url"])
}
