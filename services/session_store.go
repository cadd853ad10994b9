package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"davo_admin/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Ключи сохраненного состояния сессии
const (
	sessionKeyToken     = "auth_token"
	sessionKeyRole      = "user_role"
	sessionKeyUsername  = "username"
	sessionKeyExpiresAt = "expires_at"
)

var (
	// ErrSessionNotFound сессия отсутствует или истекла
	ErrSessionNotFound = errors.New("сессия не найдена")
	// ErrRoleNotAllowed у пользователя нет роли панели
	ErrRoleNotAllowed = errors.New("у пользователя нет доступа к панели")
)

// SessionStorage хранилище сессий панели
type SessionStorage interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStorage хранит сессию в хэше session:<id>
type RedisSessionStorage struct {
	redis *redis.Client
}

// NewRedisSessionStorage создает хранилище сессий в Redis
func NewRedisSessionStorage(client *redis.Client) *RedisSessionStorage {
	return &RedisSessionStorage{redis: client}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Load читает сессию из Redis
func (s *RedisSessionStorage) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	values, err := s.redis.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}

	token := values[sessionKeyToken]
	role := models.Role(values[sessionKeyRole])
	if token == "" || !role.IsValid() {
		return nil, ErrSessionNotFound
	}

	session := &models.Session{
		ID:       sessionID,
		Token:    token,
		Role:     role,
		Username: values[sessionKeyUsername],
	}
	if raw := values[sessionKeyExpiresAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			session.ExpiresAt = t
		}
	}
	return session, nil
}

// Save сохраняет сессию в Redis с TTL
func (s *RedisSessionStorage) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	fields := map[string]interface{}{
		sessionKeyToken:    session.Token,
		sessionKeyRole:     string(session.Role),
		sessionKeyUsername: session.Username,
	}
	if !session.ExpiresAt.IsZero() {
		fields[sessionKeyExpiresAt] = session.ExpiresAt.Format(time.RFC3339)
	}

	key := sessionKey(session.ID)
	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

// Delete удаляет сессию из Redis
func (s *RedisSessionStorage) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, sessionKey(sessionID)).Err()
}

// MemorySessionStorage хранилище сессий в памяти процесса
type MemorySessionStorage struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	values   map[string]string
	deadline time.Time
}

// NewMemorySessionStorage создает хранилище сессий в памяти
func NewMemorySessionStorage() *MemorySessionStorage {
	return &MemorySessionStorage{sessions: make(map[string]memorySession)}
}

// Load читает сессию
func (s *MemorySessionStorage) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok && !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
		delete(s.sessions, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	session := &models.Session{
		ID:       sessionID,
		Token:    entry.values[sessionKeyToken],
		Role:     models.Role(entry.values[sessionKeyRole]),
		Username: entry.values[sessionKeyUsername],
	}
	if raw := entry.values[sessionKeyExpiresAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			session.ExpiresAt = t
		}
	}
	return session, nil
}

// Save сохраняет сессию
func (s *MemorySessionStorage) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	entry := memorySession{values: map[string]string{
		sessionKeyToken:    session.Token,
		sessionKeyRole:     string(session.Role),
		sessionKeyUsername: session.Username,
	}}
	if !session.ExpiresAt.IsZero() {
		entry.values[sessionKeyExpiresAt] = session.ExpiresAt.Format(time.RFC3339)
	}
	if ttl > 0 {
		entry.deadline = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.sessions[session.ID] = entry
	s.mu.Unlock()
	return nil
}

// Delete удаляет сессию
func (s *MemorySessionStorage) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// SessionService управляет жизненным циклом сессий: вход, восстановление, выход
type SessionService struct {
	api     MarketAPI
	storage SessionStorage
	panels  *PanelRegistry
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

// NewSessionService создает сервис сессий
func NewSessionService(api MarketAPI, storage SessionStorage, panels *PanelRegistry, ttl time.Duration, logger *logrus.Logger) *SessionService {
	return &SessionService{
		api:     api,
		storage: storage,
		panels:  panels,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Login авторизует пользователя в Davo API и сохраняет новую сессию
func (s *SessionService) Login(ctx context.Context, login, password string) (*models.Session, error) {
	payload, err := s.api.Login(ctx, login, password)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"login": login, "error": err.Error()}).Warn("Неуспешная авторизация")
		return nil, err
	}

	role := models.RoleFromAuthorities(payload.User.Authorities)
	if !role.IsValid() {
		s.logger.WithField("login", login).Warn("Пользователь без роли панели")
		return nil, ErrRoleNotAllowed
	}

	username := payload.User.Username
	if username == "" {
		username = login
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Token:     payload.Token.Token,
		Role:      role,
		Username:  username,
		ExpiresAt: tokenExpiry(payload.Token),
	}

	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		if untilExpiry := session.ExpiresAt.Sub(s.now()); untilExpiry > 0 && untilExpiry < ttl {
			ttl = untilExpiry
		}
	}

	if err := s.storage.Save(ctx, session, ttl); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"username":   session.Username,
		"role":       session.Role,
	}).Info("Сессия создана")
	return session, nil
}

// Resolve восстанавливает сессию из хранилища. Истекшая сессия удаляется.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		// Сессия истекла по TTL хранилища: панель больше никому не нужна
		if errors.Is(err, ErrSessionNotFound) && s.panels != nil {
			s.panels.Drop(sessionID)
		}
		return nil, err
	}

	if session.IsExpired(s.now()) {
		s.Logout(ctx, sessionID)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Logout удаляет сессию и состояние ее панели
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if s.panels != nil {
		s.panels.Drop(sessionID)
	}
	if err := s.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	s.logger.WithField("session_id", sessionID).Info("Сессия завершена")
	return nil
}
