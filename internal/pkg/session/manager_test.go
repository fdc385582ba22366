package session

import (
	"context"
	"testing"
	"time"

	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var (
	alice = jwt.Identity{UserID: "u-1", Username: "alice", Email: "alice@example.com"}
	prov  = Provenance{UserAgent: "curl/8.0", IP: "10.0.0.1"}
)

type harness struct {
	codec *jwt.Codec
	clock *fakeClock
	store *MemoryStore
	mgr   *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	codec, err := jwt.NewCodec(jwt.Options{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Now:           clk.Now,
	})
	require.NoError(t, err)
	store := NewMemoryStore()
	return &harness{codec: codec, clock: clk, store: store, mgr: NewManager(codec, store, nil)}
}

func TestIssueRegistersSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	rec, err := h.store.Find(ctx, pair.SessionID)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, rec.UserID)
	assert.Equal(t, HashToken(pair.RefreshToken), rec.TokenHash)
	assert.NotEqual(t, pair.RefreshToken, rec.TokenHash)
	assert.Equal(t, h.clock.Now().Add(jwt.DefaultRefreshTTL), rec.ExpiresAt.UTC())
	assert.Equal(t, "curl/8.0", rec.UserAgent)
	assert.Equal(t, "10.0.0.1", rec.IP)
}

func TestRotateIsSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)

	second, err := h.mgr.Rotate(ctx, first.RefreshToken, prov)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, alice, second.Identity)

	_, err = h.mgr.Rotate(ctx, first.RefreshToken, prov)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = h.mgr.Rotate(ctx, second.RefreshToken, prov)
	assert.NoError(t, err)
}

func TestRotationChainIntegrity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)
	ids := []string{pair.SessionID}
	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Minute)
		pair, err = h.mgr.Rotate(ctx, pair.RefreshToken, prov)
		require.NoError(t, err)
		ids = append(ids, pair.SessionID)
	}

	for i := 0; i < len(ids)-1; i++ {
		rec, err := h.store.Find(ctx, ids[i])
		require.NoError(t, err)
		assert.True(t, rec.Revoked)
		assert.Equal(t, ids[i+1], rec.ReplacedBy)
	}
	last, err := h.store.Find(ctx, ids[len(ids)-1])
	require.NoError(t, err)
	assert.False(t, last.Revoked)

	active, err := h.mgr.ListSessions(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, last.ID, active[0].ID)
}

func TestRotationTimestampsOrdered(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			clk := &fakeClock{t: time.Now().Add(137 * time.Millisecond)}
			codec, err := jwt.NewCodec(jwt.Options{
				AccessSecret:  "access-secret",
				RefreshSecret: "refresh-secret",
				Now:           clk.Now,
			})
			require.NoError(t, err)
			store := open(t)
			mgr := NewManager(codec, store, nil)

			first, err := mgr.Issue(ctx, alice, prov)
			require.NoError(t, err)
			clk.Advance(300 * time.Millisecond)
			second, err := mgr.Rotate(ctx, first.RefreshToken, prov)
			require.NoError(t, err)

			old, err := store.Find(ctx, first.SessionID)
			require.NoError(t, err)
			next, err := store.Find(ctx, second.SessionID)
			require.NoError(t, err)
			require.NotNil(t, old.RevokedAt)
			assert.Equal(t, second.SessionID, old.ReplacedBy)
			assert.False(t, next.CreatedAt.Before(*old.RevokedAt),
				"successor created %v before predecessor revoked %v", next.CreatedAt, *old.RevokedAt)
			assert.False(t, next.CreatedAt.Before(old.CreatedAt))
		})
	}
}

func TestRotateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.mgr.Rotate(ctx, "garbage", prov)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("access token presented", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.mgr.Issue(ctx, alice, prov)
		require.NoError(t, err)
		_, err = h.mgr.Rotate(ctx, pair.AccessToken, prov)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown session", func(t *testing.T) {
		h := newHarness(t)
		tok, err := h.codec.SignRefresh(alice, "never-issued")
		require.NoError(t, err)
		_, err = h.mgr.Rotate(ctx, tok, prov)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("digest mismatch", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.mgr.Issue(ctx, alice, prov)
		require.NoError(t, err)

		forged := alice
		forged.Email = "mallory@example.com"
		tok, err := h.codec.SignRefresh(forged, pair.SessionID)
		require.NoError(t, err)

		_, err = h.mgr.Rotate(ctx, tok, prov)
		assert.ErrorIs(t, err, ErrTokenMismatch)

		rec, err := h.store.Find(ctx, pair.SessionID)
		require.NoError(t, err)
		assert.False(t, rec.Revoked, "a rejected rotation leaves the session untouched")
	})

	t.Run("session expired before token", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.mgr.Issue(ctx, alice, prov)
		require.NoError(t, err)

		h.store.mu.Lock()
		rec := h.store.sessions[pair.SessionID]
		rec.ExpiresAt = h.clock.Now().Add(-time.Second)
		h.store.sessions[pair.SessionID] = rec
		h.store.mu.Unlock()

		_, err = h.mgr.Rotate(ctx, pair.RefreshToken, prov)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("token expired", func(t *testing.T) {
		h := newHarness(t)
		pair, err := h.mgr.Issue(ctx, alice, prov)
		require.NoError(t, err)
		h.clock.Advance(jwt.DefaultRefreshTTL + time.Second)
		_, err = h.mgr.Rotate(ctx, pair.RefreshToken, prov)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAccessTokensAreStateless(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pair, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)

	wiped := NewManager(h.codec, NewMemoryStore(), nil)
	res := wiped.ValidateAccessOrRefresh(ctx, pair.AccessToken, "", prov)
	assert.Equal(t, Authenticated, res.Outcome)
	assert.Equal(t, alice, res.Identity)
}

func TestValidateAccessOrRefresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pair, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)

	res := h.mgr.ValidateAccessOrRefresh(ctx, pair.AccessToken, pair.RefreshToken, prov)
	assert.Equal(t, Authenticated, res.Outcome)
	assert.Nil(t, res.Pair, "a valid access token never rotates")

	h.clock.Advance(16 * time.Minute)
	res = h.mgr.ValidateAccessOrRefresh(ctx, pair.AccessToken, pair.RefreshToken, prov)
	require.Equal(t, Rotated, res.Outcome, res.Err)
	require.NotNil(t, res.Pair)
	assert.Equal(t, alice, res.Identity)

	claims, err := h.codec.VerifyAccess(res.Pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, claims.UserID)

	res = h.mgr.ValidateAccessOrRefresh(ctx, pair.AccessToken, pair.RefreshToken, prov)
	assert.Equal(t, Rejected, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrSessionRevoked)

	res = h.mgr.ValidateAccessOrRefresh(ctx, "", "", prov)
	assert.Equal(t, Rejected, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrUnauthenticated)
}

func TestRevokeAndSessionManagement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	laptop, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)
	phone, err := h.mgr.Issue(ctx, alice, Provenance{UserAgent: "ios"})
	require.NoError(t, err)
	tablet, err := h.mgr.Issue(ctx, alice, Provenance{UserAgent: "ipad"})
	require.NoError(t, err)

	require.NoError(t, h.mgr.Revoke(ctx, laptop.RefreshToken))
	require.NoError(t, h.mgr.Revoke(ctx, laptop.RefreshToken), "revoke is idempotent")
	_, err = h.mgr.Rotate(ctx, laptop.RefreshToken, prov)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	assert.ErrorIs(t, h.mgr.RevokeSession(ctx, "someone-else", phone.SessionID), ErrSessionNotFound)
	require.NoError(t, h.mgr.RevokeOtherSessions(ctx, alice.UserID, tablet.SessionID))

	active, err := h.mgr.ListSessions(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, tablet.SessionID, active[0].ID)
	assert.Equal(t, tablet.SessionID, h.mgr.SessionIDOf(tablet.RefreshToken))
}

func TestSweepDropsExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.mgr.Issue(ctx, alice, prov)
	require.NoError(t, err)

	h.clock.Advance(jwt.DefaultRefreshTTL + time.Minute)
	n, err := h.mgr.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
