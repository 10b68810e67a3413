// Package session реализует хранилище сессий с явным жизненным циклом.
//
// SessionUser держится в памяти процесса и дублируется в долговременный
// кэш под фиксированной схемой ключей, чтобы сессия переживала перезапуск.
// Ключ сессии и ключ токена всегда очищаются вместе. Прочие пакеты не
// читают кэш напрямую — единственный источник истины находится здесь.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Схема ключей долговременного кэша.
const (
	sessionKeyPrefix = "xnema:session:"
	tokenKeyPrefix   = "xnema:token:"
)

// CacheLayer описывает долговременный слой хранилища сессий.
type CacheLayer interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Store хранит сессии пользователей.
type Store struct {
	cache CacheLayer
	ttl   time.Duration

	mu      sync.Mutex
	users   map[string]*models.SessionUser
	seq     uint64
	applied map[string]uint64
}

// NewStore создаёт хранилище сессий поверх долговременного кэша.
// ttl задаёт время жизни записи в кэше.
func NewStore(cache CacheLayer, ttl time.Duration) *Store {
	return &Store{
		cache:   cache,
		ttl:     ttl,
		users:   make(map[string]*models.SessionUser),
		applied: make(map[string]uint64),
	}
}

// NextSeq выдаёт монотонно возрастающий номер запроса.
// Вызывающая сторона получает номер до начала асинхронной операции
// и передаёт его в Set: запоздавший результат отбрасывается.
func (s *Store) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Set сохраняет сессию пользователя и токен, если результат не устарел.
// Возвращает false, если для этого пользователя уже применён более
// поздний результат и мутация отброшена.
func (s *Store) Set(ctx context.Context, seq uint64, user *models.SessionUser, token string) (bool, error) {
	const op = "session.Set"

	s.mu.Lock()
	if last, ok := s.applied[user.UID]; ok && seq < last {
		s.mu.Unlock()
		return false, nil
	}
	s.applied[user.UID] = seq
	s.users[user.UID] = user
	s.mu.Unlock()

	if err := s.cache.Set(ctx, sessionKeyPrefix+user.UID, user, s.ttl); err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}
	if token != "" {
		if err := s.cache.Set(ctx, tokenKeyPrefix+user.UID, token, s.ttl); err != nil {
			return true, fmt.Errorf("%s: %w", op, err)
		}
	}
	return true, nil
}

// Get возвращает сессию пользователя: сначала из памяти,
// затем из долговременного кэша.
func (s *Store) Get(ctx context.Context, uid string) (*models.SessionUser, error) {
	const op = "session.Get"

	s.mu.Lock()
	if u, ok := s.users[uid]; ok {
		s.mu.Unlock()
		return u, nil
	}
	s.mu.Unlock()

	var user models.SessionUser
	found, err := s.cache.Get(ctx, sessionKeyPrefix+uid, &user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}

	s.mu.Lock()
	s.users[uid] = &user
	s.mu.Unlock()
	return &user, nil
}

// Clear удаляет сессию пользователя из памяти и из кэша.
// Ключ сессии и ключ токена удаляются вместе.
func (s *Store) Clear(ctx context.Context, uid string) error {
	const op = "session.Clear"

	s.mu.Lock()
	delete(s.users, uid)
	delete(s.applied, uid)
	s.mu.Unlock()

	if err := s.cache.Invalidate(ctx, sessionKeyPrefix+uid, tokenKeyPrefix+uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
