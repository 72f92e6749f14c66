package service

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidepostapp/guidepost-server/internal/auth"
	"github.com/guidepostapp/guidepost-server/internal/domain"
	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
	"github.com/guidepostapp/guidepost-server/internal/id"
	"github.com/guidepostapp/guidepost-server/internal/store"
	"github.com/guidepostapp/guidepost-server/internal/store/sqlite"
)

func setupSessionTest(t *testing.T) (*SessionService, store.Store) {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		15*time.Minute,
		30*24*time.Hour,
	)
	require.NoError(t, err)

	return NewSessionService(s, tokenService, nil), s
}

func TestSessionService_CreateSession(t *testing.T) {
	svc, s := setupSessionTest(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	resp, err := svc.CreateSession(ctx, user, auth.DeviceInfo{
		Platform:      "macOS",
		ClientName:    "Guidepost Extension",
		ClientVersion: "1.2.0",
		DeviceName:    "Work Laptop",
	}, "203.0.113.7")
	require.NoError(t, err)

	session, err := s.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	// Only the hash is persisted, never the raw token.
	assert.Equal(t, auth.HashRefreshToken(resp.RefreshToken), session.RefreshTokenHash)
	assert.NotEqual(t, resp.RefreshToken, session.RefreshTokenHash)
	assert.Equal(t, "macOS", session.Platform)
	assert.Equal(t, "Guidepost Extension", session.ClientName)
	assert.Equal(t, "Work Laptop", session.DeviceName)
	assert.Equal(t, "203.0.113.7", session.IPAddress)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), session.ExpiresAt, time.Minute)
}

func TestSessionService_RefreshSession_ExpiredSession(t *testing.T) {
	svc, s := setupSessionTest(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	refreshToken := "stale-refresh-token"
	session := &domain.Session{
		ID:               id.MustGenerate("session"),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        time.Now().Add(-time.Hour),
		CreatedAt:        time.Now().Add(-48 * time.Hour),
		LastSeenAt:       time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, session))

	_, _, err := svc.RefreshSession(ctx, refreshToken, auth.DeviceInfo{}, "")
	require.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	// The dead session is purged on the way out.
	_, err = s.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionService_RefreshSession_UpdatesDeviceInfo(t *testing.T) {
	svc, s := setupSessionTest(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	resp, err := svc.CreateSession(ctx, user, auth.DeviceInfo{Platform: "Web"}, "198.51.100.1")
	require.NoError(t, err)

	rotated, _, err := svc.RefreshSession(ctx, resp.RefreshToken, auth.DeviceInfo{
		Platform:      "Windows",
		ClientName:    "Guidepost Extension",
		ClientVersion: "1.3.0",
	}, "198.51.100.2")
	require.NoError(t, err)

	session, err := s.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Windows", session.Platform)
	assert.Equal(t, "1.3.0", session.ClientVersion)
	assert.Equal(t, "198.51.100.2", session.IPAddress)

	// A refresh with no device info keeps what the session already has.
	_, _, err = svc.RefreshSession(ctx, rotated.RefreshToken, auth.DeviceInfo{}, "")
	require.NoError(t, err)

	session, err = s.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Windows", session.Platform)
	assert.Equal(t, "198.51.100.2", session.IPAddress)
}

func TestSessionService_DeleteExpiredSessions(t *testing.T) {
	svc, s := setupSessionTest(t)
	ctx := context.Background()
	user := newTestUser(t, s, "alice@example.com")

	// One live session.
	_, err := svc.CreateSession(ctx, user, auth.DeviceInfo{}, "")
	require.NoError(t, err)

	// Two expired ones.
	for i := 0; i < 2; i++ {
		session := &domain.Session{
			ID:               id.MustGenerate("session"),
			UserID:           user.ID,
			RefreshTokenHash: auth.HashRefreshToken(id.MustGenerate("token")),
			ExpiresAt:        time.Now().Add(-time.Hour),
			CreatedAt:        time.Now().Add(-48 * time.Hour),
			LastSeenAt:       time.Now().Add(-2 * time.Hour),
		}
		require.NoError(t, s.CreateSession(ctx, session))
	}

	count, err := svc.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
