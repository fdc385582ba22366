package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/testdb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id, userID string, expires time.Time) *models.RefreshSession {
	return &models.RefreshSession{
		ID:        id,
		UserID:    userID,
		TokenHash: HashToken("raw-" + id),
		CreatedAt: time.Now().Truncate(time.Millisecond),
		ExpiresAt: expires.Truncate(time.Millisecond),
		UserAgent: "test-agent",
		IP:        "127.0.0.1",
	}
}

func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"gorm":   func(t *testing.T) Store { return NewGormStore(testdb.New(t)) },
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return NewRedisStore(rdb)
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("CreateFind", func(t *testing.T) { testCreateFind(t, open(t)) })
			t.Run("RevokeFirstWins", func(t *testing.T) { testRevokeFirstWins(t, open(t)) })
			t.Run("RotateLinksChain", func(t *testing.T) { testRotateLinksChain(t, open(t)) })
			t.Run("RotateLosesToRevoke", func(t *testing.T) { testRotateLosesToRevoke(t, open(t)) })
			t.Run("ConcurrentRotate", func(t *testing.T) { testConcurrentRotate(t, open(t)) })
			t.Run("ListAndRevokeAll", func(t *testing.T) { testListAndRevokeAll(t, open(t)) })
			t.Run("CreateRejectsDuplicate", func(t *testing.T) { testCreateRejectsDuplicate(t, open(t)) })
			t.Run("RotateStampsSuccessor", func(t *testing.T) { testRotateStampsSuccessor(t, open(t)) })
		})
	}
}

func testCreateFind(t *testing.T, s Store) {
	ctx := context.Background()
	rec := newRecord("s-1", "u-1", time.Now().Add(time.Hour))
	require.NoError(t, s.Create(ctx, rec))

	got, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, rec.TokenHash, got.TokenHash)
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, got.Revoked)
	assert.Empty(t, got.ReplacedBy)

	_, err = s.Find(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.Revoke(ctx, "missing", ""), ErrSessionNotFound)
}

func testRevokeFirstWins(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord("s-1", "u-1", time.Now().Add(time.Hour))))

	require.NoError(t, s.Revoke(ctx, "s-1", "s-2"))
	require.NoError(t, s.Revoke(ctx, "s-1", "s-3"))
	require.NoError(t, s.Revoke(ctx, "s-1", ""))

	got, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.NotNil(t, got.RevokedAt)
	assert.Equal(t, "s-2", got.ReplacedBy)
}

func testRotateLinksChain(t *testing.T, s Store) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, newRecord("s-1", "u-1", exp)))

	require.NoError(t, s.Rotate(ctx, "s-1", newRecord("s-2", "u-1", exp)))

	old, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.Equal(t, "s-2", old.ReplacedBy)

	next, err := s.Find(ctx, "s-2")
	require.NoError(t, err)
	assert.False(t, next.Revoked)

	assert.ErrorIs(t, s.Rotate(ctx, "s-1", newRecord("s-3", "u-1", exp)), ErrSessionRevoked)
	assert.ErrorIs(t, s.Rotate(ctx, "nope", newRecord("s-4", "u-1", exp)), ErrSessionNotFound)

	_, err = s.Find(ctx, "s-3")
	assert.ErrorIs(t, err, ErrSessionNotFound, "a failed rotation must not insert")
}

func testRotateLosesToRevoke(t *testing.T, s Store) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, newRecord("s-1", "u-1", exp)))
	require.NoError(t, s.Revoke(ctx, "s-1", ""))

	assert.ErrorIs(t, s.Rotate(ctx, "s-1", newRecord("s-2", "u-1", exp)), ErrSessionRevoked)
	got, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, got.ReplacedBy)
}

func testConcurrentRotate(t *testing.T, s Store) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, newRecord("s-0", "u-1", exp)))

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := newRecord("next-"+string(rune('a'+i)), "u-1", exp)
			err := s.Rotate(ctx, "s-0", next)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, next.ID)
				return
			}
			assert.ErrorIs(t, err, ErrSessionRevoked)
			losers++
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, losers)
	old, err := s.Find(ctx, "s-0")
	require.NoError(t, err)
	assert.Equal(t, winners[0], old.ReplacedBy)
}

func testCreateRejectsDuplicate(t *testing.T, s Store) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	first := newRecord("s-1", "u-1", exp)
	require.NoError(t, s.Create(ctx, first))

	dup := newRecord("s-1", "u-2", exp)
	dup.TokenHash = HashToken("other")
	assert.ErrorIs(t, s.Create(ctx, dup), ErrSessionExists)

	got, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, first.TokenHash, got.TokenHash)

	require.NoError(t, s.Create(ctx, newRecord("s-2", "u-1", exp)))
	assert.ErrorIs(t, s.Rotate(ctx, "s-1", newRecord("s-2", "u-1", exp)), ErrSessionExists)
}

func testRotateStampsSuccessor(t *testing.T, s Store) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, newRecord("s-1", "u-1", exp)))

	next := newRecord("s-2", "u-1", exp)
	next.CreatedAt = time.Now().Add(300 * time.Millisecond)
	require.NoError(t, s.Rotate(ctx, "s-1", next))

	old, err := s.Find(ctx, "s-1")
	require.NoError(t, err)
	got, err := s.Find(ctx, "s-2")
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)
	assert.False(t, got.CreatedAt.Before(*old.RevokedAt),
		"successor created %v before predecessor revoked %v", got.CreatedAt, *old.RevokedAt)

	unset := newRecord("s-3", "u-1", exp)
	unset.CreatedAt = time.Time{}
	require.NoError(t, s.Rotate(ctx, "s-2", unset))
	mid, err := s.Find(ctx, "s-2")
	require.NoError(t, err)
	last, err := s.Find(ctx, "s-3")
	require.NoError(t, err)
	require.NotNil(t, mid.RevokedAt)
	assert.False(t, last.CreatedAt.IsZero())
	assert.False(t, last.CreatedAt.Before(*mid.RevokedAt))
}

func testListAndRevokeAll(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Create(ctx, newRecord("a", "u-1", now.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newRecord("b", "u-1", now.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newRecord("c", "u-2", now.Add(time.Hour))))

	list, err := s.ListActive(ctx, "u-1", now)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.RevokeAllForUser(ctx, "u-1", "b"))
	list, err = s.ListActive(ctx, "u-1", now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)

	other, err := s.ListActive(ctx, "u-2", now)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	for name, open := range map[string]func(t *testing.T) Store{
		"memory": backends()["memory"],
		"gorm":   backends()["gorm"],
	} {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			require.NoError(t, s.Create(ctx, newRecord("old", "u-1", now.Add(-time.Minute))))
			require.NoError(t, s.Create(ctx, newRecord("live", "u-1", now.Add(time.Hour))))

			n, err := s.PurgeExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = s.Find(ctx, "old")
			assert.ErrorIs(t, err, ErrSessionNotFound)
			_, err = s.Find(ctx, "live")
			assert.NoError(t, err)
		})
	}
}

func TestRedisSessionExpiresWithToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newRecord("s-1", "u-1", time.Now().Add(time.Minute))))
	mr.FastForward(2 * time.Minute)

	_, err := s.Find(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	list, err := s.ListActive(ctx, "u-1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisListPrunesStaleIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newRecord("gone", "u-1", time.Now().Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newRecord("kept", "u-1", time.Now().Add(time.Hour))))
	mr.Del(sessionKey("gone"))

	list, err := s.ListActive(ctx, "u-1", time.Now())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].ID)

	members, err := rdb.SMembers(ctx, userKey("u-1")).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, members)
}

func TestTokenDigest(t *testing.T) {
	d := HashToken("abc")
	assert.Len(t, d, 64)
	assert.True(t, TokenMatches("abc", d))
	assert.False(t, TokenMatches("abd", d))
}
