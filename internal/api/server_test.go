package api

import (
	"context"
	"encoding/hex"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidepostapp/guidepost-server/internal/auth"
	"github.com/guidepostapp/guidepost-server/internal/config"
	"github.com/guidepostapp/guidepost-server/internal/search"
	"github.com/guidepostapp/guidepost-server/internal/service"
	"github.com/guidepostapp/guidepost-server/internal/store/sqlite"
)

// testEnvelope mirrors the wire envelope for decoding API responses in
// tests. Success responses fill Data; error responses fill Code, Message,
// and Details or the plain Error string.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer wires a full server against real SQLite and bleve
// instances in a temp directory. Requests flow through the chi middleware
// chain, so auth and rate limiting behave as in production.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name:     "Test Guidepost",
			LocalURL: "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 30 * 24 * time.Hour,
		},
	}

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	require.NoError(t, err)

	sessionService := service.NewSessionService(st, tokenService, logger)
	searchService := service.NewSearchService(index, st, logger)
	st.SetSearchIndexer(searchService)

	services := &Services{
		Instance: service.NewInstanceService(st, logger, cfg),
		Auth:     service.NewAuthService(st, tokenService, sessionService, logger),
		Session:  sessionService,
		Guide:    service.NewGuideService(st, logger),
		Share:    service.NewShareService(st, logger),
		Search:   searchService,
	}

	srv := NewServer(st, services, "0.0.0-test", logger)
	t.Cleanup(srv.Stop)

	_, err = services.Instance.InitializeInstance(context.Background(), "0.0.0-test")
	require.NoError(t, err)

	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.api),
	}
}

// registerUser creates an account through the API and returns its access
// token and user ID.
func (ts *testServer) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, "register failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	return envelope.Data.AccessToken, envelope.Data.User.ID
}

// createGuide creates a guide through the API and returns the response body.
func (ts *testServer) createGuide(t *testing.T, token string, body map[string]any) GuideResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/guides", "Authorization: Bearer "+token, body)
	require.Equal(t, http.StatusCreated, resp.Code, "create guide failed: %s", resp.Body.String())

	var envelope testEnvelope[GuideResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	return envelope.Data
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[HealthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data.Status)

	db, ok := envelope.Data.Components["database"]
	require.True(t, ok, "health response must include the database component")
	assert.Equal(t, "healthy", db.Status)

	idx, ok := envelope.Data.Components["search"]
	require.True(t, ok, "health response must include the search component")
	assert.Equal(t, "healthy", idx.Status)
	assert.Equal(t, "search index empty", idx.Message)
}

func TestGetInstance(t *testing.T) {
	ts := setupTestServer(t)

	// No auth header: instance discovery is open.
	resp := ts.api.Get("/api/v1/instance")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[InstanceResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "Test Guidepost", envelope.Data.Name)
	assert.Equal(t, "0.0.0-test", envelope.Data.Version)
	assert.Equal(t, "http://localhost:8080", envelope.Data.LocalURL)
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t)

	// Register. The first account becomes root.
	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "alice@example.com",
		"password":     "correct-horse-battery",
		"display_name": "Alice",
		"device_info": map[string]any{
			"platform":    "Linux",
			"client_name": "Guidepost Extension",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var registered testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))
	assert.Equal(t, EnvelopeVersion, registered.Version)
	assert.True(t, registered.Success)
	assert.NotEmpty(t, registered.Data.AccessToken)
	assert.NotEmpty(t, registered.Data.RefreshToken)
	assert.NotEmpty(t, registered.Data.SessionID)
	assert.Equal(t, "Bearer", registered.Data.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), registered.Data.ExpiresIn)
	assert.Equal(t, "alice@example.com", registered.Data.User.Email)
	assert.Equal(t, "Alice", registered.Data.User.DisplayName)
	assert.True(t, registered.Data.User.IsRoot)

	// The token works against a protected route.
	resp = ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+registered.Data.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)

	var me testEnvelope[UserResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &me))
	assert.Equal(t, registered.Data.User.ID, me.Data.ID)

	// Login with the wrong password fails without leaking which part was wrong.
	resp = ts.api.Post("/api/v1/auth/token", map[string]any{
		"email":    "alice@example.com",
		"password": "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	// Login with the right password issues a fresh session.
	resp = ts.api.Post("/api/v1/auth/token", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var loggedIn testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loggedIn))
	assert.NotEmpty(t, loggedIn.Data.SessionID)
	assert.NotEqual(t, registered.Data.SessionID, loggedIn.Data.SessionID)

	// Refresh rotates the refresh token.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": loggedIn.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refreshed testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.Data.AccessToken)
	assert.NotEqual(t, loggedIn.Data.RefreshToken, refreshed.Data.RefreshToken)

	// Logout revokes the session.
	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+refreshed.Data.AccessToken,
		map[string]any{"session_id": refreshed.Data.SessionID},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var loggedOut testEnvelope[MessageResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loggedOut))
	assert.Equal(t, "Logged out successfully", loggedOut.Data.Message)

	// The revoked session's refresh token no longer works.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": refreshed.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_ForeignSessionLooksMissing(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var alice testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &alice))

	bobToken, _ := ts.registerUser(t, "bob@example.com")

	// Bob cannot tell Alice's session apart from a nonexistent one.
	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+bobToken,
		map[string]any{"session_id": alice.Data.SessionID},
	)
	require.Equal(t, http.StatusNotFound, resp.Code)

	var envelope testEnvelope[MessageResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Code)

	// Alice's session is untouched.
	resp = ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+alice.Data.AccessToken)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerUser(t, "alice@example.com")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "alice@example.com",
		"password": "another-long-password",
	})
	require.Equal(t, http.StatusConflict, resp.Code)

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "ALREADY_EXISTS", envelope.Code)
}

func TestRegister_PasswordTooShort(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "alice@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/guides"},
		{http.MethodGet, "/api/v1/guides/search?q=anything"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			// No credentials.
			resp := ts.api.Do(p.method, p.path)
			require.Equal(t, http.StatusUnauthorized, resp.Code)

			var envelope testEnvelope[struct{}]
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
			assert.Equal(t, EnvelopeVersion, envelope.Version)
			assert.False(t, envelope.Success)
			assert.Equal(t, "UNAUTHORIZED", envelope.Code)

			// A garbage token is treated the same as none.
			resp = ts.api.Do(p.method, p.path, "Authorization: Bearer not-a-token")
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}
}
