package services

import (
	"context"
	"testing"
	"time"

	"davo_admin/config"
	"davo_admin/models"
	"davo_admin/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService(api MarketAPI) (*SessionService, *MemorySessionStorage, *PanelRegistry) {
	logger := config.NewDiscardLogger()
	storage := NewMemorySessionStorage()
	panels := NewPanelRegistry(api, 100, logger)
	return NewSessionService(api, storage, panels, time.Hour, logger), storage, panels
}

func TestSessionService_LoginAndResolve(t *testing.T) {
	mock := NewMockDavoClient(testutils.AloeBetaMarkets())
	sessions, _, _ := newTestSessionService(mock)
	ctx := context.Background()

	session, err := sessions.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.RoleAdmin, session.Role)
	assert.Equal(t, "mock_token_123", session.Token)

	resolved, err := sessions.Resolve(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Token, resolved.Token)
	assert.Equal(t, session.Role, resolved.Role)
	assert.Equal(t, "admin", resolved.Username)
}

func TestSessionService_AgentRole(t *testing.T) {
	mock := NewMockDavoClient(nil)
	mock.LoginResponse.User.Authorities = []models.Authority{{Authority: "ROLE_AGENT"}}
	sessions, _, _ := newTestSessionService(mock)

	session, err := sessions.Login(context.Background(), "agent", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, session.Role)
}

func TestSessionService_RoleNotAllowed(t *testing.T) {
	mock := NewMockDavoClient(nil)
	mock.LoginResponse.User.Authorities = []models.Authority{{Authority: "ROLE_COURIER"}}
	sessions, storage, _ := newTestSessionService(mock)

	_, err := sessions.Login(context.Background(), "courier", "secret")
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
	assert.Empty(t, storage.sessions)
}

func TestSessionService_LoginFailure(t *testing.T) {
	mock := NewMockDavoClient(nil)
	mock.ShouldFailLogin = true
	sessions, _, _ := newTestSessionService(mock)

	_, err := sessions.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSessionService_ExpiredSessionIsCleared(t *testing.T) {
	mock := NewMockDavoClient(nil)
	sessions, storage, panels := newTestSessionService(mock)
	ctx := context.Background()

	expired := &models.Session{
		ID:        "expired-session",
		Token:     "tok",
		Role:      models.RoleAdmin,
		Username:  "admin",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, storage.Save(ctx, expired, time.Hour))
	panels.Get(expired.ID)

	_, err := sessions.Resolve(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = storage.Load(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, panels.Len())
}

func TestSessionService_Logout(t *testing.T) {
	mock := NewMockDavoClient(testutils.AloeBetaMarkets())
	sessions, _, panels := newTestSessionService(mock)
	ctx := context.Background()

	session, err := sessions.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	require.NoError(t, panels.Get(session.ID).Load(ctx, session.Token, nil))

	require.NoError(t, sessions.Logout(ctx, session.ID))

	_, err = sessions.Resolve(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, panels.Len())
}

func TestSessionService_ResolveEmptyID(t *testing.T) {
	sessions, _, _ := newTestSessionService(NewMockDavoClient(nil))

	_, err := sessions.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStorage_TTL(t *testing.T) {
	storage := NewMemorySessionStorage()
	ctx := context.Background()

	session := &models.Session{ID: "s1", Token: "tok", Role: models.RoleAgent}
	require.NoError(t, storage.Save(ctx, session, time.Millisecond))

	time.Sleep(5 * time.Millisecond)
	_, err := storage.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_StorageExpiryDropsPanel(t *testing.T) {
	mock := NewMockDavoClient(testutils.AloeBetaMarkets())
	sessions, storage, panels := newTestSessionService(mock)
	ctx := context.Background()

	session, err := sessions.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	require.NoError(t, panels.Get(session.ID).Load(ctx, session.Token, nil))

	// Хранилище забыло сессию (истек TTL), до проверки срока токена дело не доходит
	require.NoError(t, storage.Delete(ctx, session.ID))

	_, err = sessions.Resolve(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, panels.Len())
}

func TestMemorySessionStorage_ExpiredEntryIsDeleted(t *testing.T) {
	storage := NewMemorySessionStorage()
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.Session{ID: "s1", Token: "tok", Role: models.RoleAgent}, time.Millisecond))
	require.NoError(t, storage.Save(ctx, &models.Session{ID: "s2", Token: "tok", Role: models.RoleAgent}, time.Hour))

	time.Sleep(5 * time.Millisecond)
	_, err := storage.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Len(t, storage.sessions, 1)
	assert.Contains(t, storage.sessions, "s2")
}

func TestRedisSessionStorage(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	storage := NewRedisSessionStorage(client)
	ctx := context.Background()

	expiresAt := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	session := &models.Session{
		ID:        "redis-session",
		Token:     "tok_abc",
		Role:      models.RoleAdmin,
		Username:  "admin",
		ExpiresAt: expiresAt,
	}
	require.NoError(t, storage.Save(ctx, session, time.Hour))

	// Поля хэша session:<id>
	assert.Equal(t, "tok_abc", mr.HGet("session:redis-session", "auth_token"))
	assert.Equal(t, "ROLE_ADMIN", mr.HGet("session:redis-session", "user_role"))
	assert.Equal(t, "admin", mr.HGet("session:redis-session", "username"))
	assert.Equal(t, time.Hour, mr.TTL("session:redis-session"))

	loaded, err := storage.Load(ctx, "redis-session")
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", loaded.Token)
	assert.Equal(t, models.RoleAdmin, loaded.Role)
	assert.Equal(t, "admin", loaded.Username)
	assert.True(t, expiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, storage.Delete(ctx, "redis-session"))
	assert.False(t, mr.Exists("session:redis-session"))
	_, err = storage.Load(ctx, "redis-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStorage_TTLExpiry(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	storage := NewRedisSessionStorage(client)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.Session{ID: "s1", Token: "tok", Role: models.RoleAgent}, time.Minute))

	_, err := storage.Load(ctx, "s1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = storage.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStorage_IncompleteHash(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	storage := NewRedisSessionStorage(client)

	mr.HSet("session:broken", "auth_token", "tok")
	_, err := storage.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_TTLCappedByTokenExpiry(t *testing.T) {
	mr, client := testutils.SetupTestRedis(t)
	logger := config.NewDiscardLogger()

	mock := NewMockDavoClient(nil)
	expiresAt := time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)
	mock.LoginResponse.Token.ExpiresAt = &expiresAt

	panels := NewPanelRegistry(mock, 100, logger)
	sessions := NewSessionService(mock, NewRedisSessionStorage(client), panels, 24*time.Hour, logger)

	session, err := sessions.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	ttl := mr.TTL("session:" + session.ID)
	assert.True(t, ttl > 8*time.Minute && ttl <= 10*time.Minute, "TTL сессии ограничен сроком токена: %v", ttl)

	// После истечения хэша сессия не восстанавливается, панель освобождается
	panels.Get(session.ID)
	mr.FastForward(11 * time.Minute)
	_, err = sessions.Resolve(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, panels.Len())
}
