package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/popolling/server/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix = "popolling:session:"
	redisUserPrefix    = "popolling:user_sessions:"
)

// KEYS[1] session
// ARGV[1] revoked_at, ARGV[2] replaced_by
var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
if redis.call('HGET', KEYS[1], 'revoked') ~= '1' then
  redis.call('HSET', KEYS[1], 'revoked', '1', 'revoked_at', ARGV[1])
end
if ARGV[2] ~= '' then
  local cur = redis.call('HGET', KEYS[1], 'replaced_by')
  if not cur or cur == '' then
    redis.call('HSET', KEYS[1], 'replaced_by', ARGV[2])
  end
end
return 1
`)

// KEYS[1] old session, KEYS[2] next session, KEYS[3] user index
// ARGV[1] revoked_at, ARGV[2] next id, ARGV[3] next expiry (ms), ARGV[4..] next fields
var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('HGET', KEYS[1], 'revoked') == '1' then return 0 end
if redis.call('EXISTS', KEYS[2]) == 1 then return -2 end
redis.call('HSET', KEYS[1], 'revoked', '1', 'revoked_at', ARGV[1], 'replaced_by', ARGV[2])
for i = 4, #ARGV, 2 do
  redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
redis.call('PEXPIREAT', KEYS[2], ARGV[3])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

// KEYS[1] session, KEYS[2] user index
// ARGV[1] expiry (ms), ARGV[2] id, ARGV[3..] fields
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('PEXPIREAT', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[2])
return 1
`)

// RedisStore keeps each session in a hash that expires with the token, plus a
// per-user set of session ids. Revoke and Rotate run as Lua scripts.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func sessionKey(id string) string  { return redisSessionPrefix + id }
func userKey(userID string) string { return redisUserPrefix + userID }

func (r *RedisStore) Create(ctx context.Context, s *models.RefreshSession) error {
	args := []interface{}{millis(s.ExpiresAt), s.ID}
	args = appendFields(args, s)
	n, err := createScript.Run(ctx, r.rdb, []string{sessionKey(s.ID), userKey(s.UserID)}, args...).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionExists
	}
	return nil
}

func (r *RedisStore) Find(ctx context.Context, id string) (*models.RefreshSession, error) {
	fields, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeSession(id, fields)
}

func (r *RedisStore) Revoke(ctx context.Context, id, replacedBy string) error {
	n, err := revokeScript.Run(ctx, r.rdb, []string{sessionKey(id)}, millis(r.now()), replacedBy).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *RedisStore) Rotate(ctx context.Context, oldID string, next *models.RefreshSession) error {
	at := rotationTime(next, r.now)
	args := []interface{}{millis(at), next.ID, millis(next.ExpiresAt)}
	args = appendFields(args, next)
	keys := []string{sessionKey(oldID), sessionKey(next.ID), userKey(next.UserID)}
	n, err := rotateScript.Run(ctx, r.rdb, keys, args...).Int()
	if err != nil {
		return err
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrSessionRevoked
	case -1:
		return ErrSessionNotFound
	default:
		return ErrSessionExists
	}
}

func (r *RedisStore) ListActive(ctx context.Context, userID string, now time.Time) ([]models.RefreshSession, error) {
	ids, err := r.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.RefreshSession, 0, len(ids))
	for _, id := range ids {
		s, err := r.Find(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			if err := r.rdb.SRem(ctx, userKey(userID), id).Err(); err != nil {
				return nil, fmt.Errorf("prune session index: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if s.Active(now) {
			out = append(out, *s)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RedisStore) RevokeAllForUser(ctx context.Context, userID, exceptID string) error {
	ids, err := r.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == exceptID {
			continue
		}
		if err := r.Revoke(ctx, id, ""); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	}
	return nil
}

// PurgeExpired is a no-op: session hashes carry their own expiry and stale
// index entries are pruned by ListActive.
func (r *RedisStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func appendFields(args []interface{}, s *models.RefreshSession) []interface{} {
	for k, v := range encodeSession(s) {
		args = append(args, k, v)
	}
	return args
}

func encodeSession(s *models.RefreshSession) map[string]interface{} {
	revoked := "0"
	if s.Revoked {
		revoked = "1"
	}
	fields := map[string]interface{}{
		"user_id":     s.UserID,
		"token_hash":  s.TokenHash,
		"created_at":  millis(s.CreatedAt),
		"expires_at":  millis(s.ExpiresAt),
		"revoked":     revoked,
		"replaced_by": s.ReplacedBy,
		"user_agent":  s.UserAgent,
		"ip":          s.IP,
	}
	if s.RevokedAt != nil {
		fields["revoked_at"] = millis(*s.RevokedAt)
	}
	return fields
}

func decodeSession(id string, f map[string]string) (*models.RefreshSession, error) {
	created, err := parseMillis(f["created_at"])
	if err != nil {
		return nil, fmt.Errorf("session %s: created_at: %w", id, err)
	}
	expires, err := parseMillis(f["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("session %s: expires_at: %w", id, err)
	}
	s := &models.RefreshSession{
		ID:         id,
		UserID:     f["user_id"],
		TokenHash:  f["token_hash"],
		CreatedAt:  created,
		ExpiresAt:  expires,
		Revoked:    f["revoked"] == "1",
		ReplacedBy: f["replaced_by"],
		UserAgent:  f["user_agent"],
		IP:         f["ip"],
	}
	if raw := f["revoked_at"]; raw != "" {
		at, err := parseMillis(raw)
		if err != nil {
			return nil, fmt.Errorf("session %s: revoked_at: %w", id, err)
		}
		s.RevokedAt = &at
	}
	return s, nil
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
