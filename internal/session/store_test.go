package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinexnema-cyber/projeto-xnema/internal/cache"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c := &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewStore(c, time.Hour), mr
}

func testUser(uid string) *models.SessionUser {
	return &models.SessionUser{
		UID:   uid,
		Email: "user@example.com",
		Role:  models.RoleUser,
	}
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := testUser("uid-1")

	applied, err := s.Set(ctx, s.NextSeq(), user, "token-1")
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.Email, got.Email)
}

func TestStaleResultDiscarded(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	early := s.NextSeq()
	late := s.NextSeq()

	fresh := testUser("uid-1")
	fresh.Role = models.RoleSubscriber
	applied, err := s.Set(ctx, late, fresh, "token-late")
	require.NoError(t, err)
	assert.True(t, applied)

	// Запоздавший результат более раннего запроса отбрасывается.
	stale := testUser("uid-1")
	applied, err = s.Set(ctx, early, stale, "token-early")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSubscriber, got.Role)
}

func TestGetFallsBackToCache(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, s.NextSeq(), testUser("uid-1"), "token-1")
	require.NoError(t, err)

	// Новый Store с тем же Redis имитирует перезапуск процесса.
	restarted := NewStore(&cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}, time.Hour)
	got, err := restarted.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user@example.com", got.Email)
}

func TestGetUnknownUser(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearRemovesSessionAndTokenTogether(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, s.NextSeq(), testUser("uid-1"), "token-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("xnema:session:uid-1"))
	assert.True(t, mr.Exists("xnema:token:uid-1"))

	require.NoError(t, s.Clear(ctx, "uid-1"))

	assert.False(t, mr.Exists("xnema:session:uid-1"))
	assert.False(t, mr.Exists("xnema:token:uid-1"))

	got, err := s.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetWithoutTokenSkipsTokenKey(t *testing.T) {
	s, mr := newTestStore(t)

	_, err := s.Set(context.Background(), s.NextSeq(), testUser("uid-1"), "")
	require.NoError(t, err)
	assert.True(t, mr.Exists("xnema:session:uid-1"))
	assert.False(t, mr.Exists("xnema:token:uid-1"))
}
