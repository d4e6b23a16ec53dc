package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldUserID   = "userId"
	fieldVersion  = "ver"
	fieldLastSeen = "lastSeen"
)

// validateAndTouchScript checks the presented version and the idle window in
// one round trip. A record whose lastSeen field is missing is treated as seen
// now. Returns 1 and touches the record on success, 0 otherwise.
var validateAndTouchScript = redis.NewScript(`
local ver = redis.call('HGET', KEYS[1], 'ver')
if not ver then return 0 end
if ver ~= ARGV[1] then return 0 end
local now = tonumber(ARGV[2])
local last = tonumber(redis.call('HGET', KEYS[1], 'lastSeen'))
if last and (now - last) > tonumber(ARGV[3]) then return 0 end
redis.call('HSET', KEYS[1], 'lastSeen', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// incrementVersionScript bumps the version counter and refreshes the record
// lifetime in one step. HINCRBY on a missing key treats the field as 0, so a
// lapsed record still yields a version strictly greater than any issued token.
var incrementVersionScript = redis.NewScript(`
local ver = redis.call('HINCRBY', KEYS[1], 'ver', 1)
redis.call('HSET', KEYS[1], 'lastSeen', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return ver
`)

// RedisStore keeps session records as hashes under sess:{sid} and maintains a
// per-user set user:{userId}:sids. All version and idle-window decisions run
// server side via Lua so concurrent requests cannot interleave.
type RedisStore struct {
	client  *redis.Client
	metaTTL time.Duration
	nowF    func() time.Time
}

func NewRedisStore(client *redis.Client, metaTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		metaTTL: metaTTL,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

func sessionKey(sessionID string) string {
	return "sess:" + sessionID
}

func userSessionsKey(userID string) string {
	return "user:" + userID + ":sids"
}

func (s *RedisStore) Create(ctx context.Context, userID, sessionID string, version int64) error {
	now := s.nowF()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(sessionID),
		fieldUserID, userID,
		fieldVersion, version,
		fieldLastSeen, now.Unix(),
	)
	pipe.Expire(ctx, sessionKey(sessionID), s.metaTTL)
	pipe.SAdd(ctx, userSessionsKey(userID), sessionID)
	pipe.Expire(ctx, userSessionsKey(userID), s.metaTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("touch session record: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldLastSeen, s.nowF().Unix())
	pipe.Expire(ctx, key, s.metaTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("touch session record: %w", err)
	}
	return nil
}

func (s *RedisStore) IncrementVersion(ctx context.Context, sessionID string) (int64, error) {
	ver, err := incrementVersionScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)},
		s.nowF().Unix(), s.metaTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment session version: %w", err)
	}
	return ver, nil
}

func (s *RedisStore) GetVersion(ctx context.Context, sessionID string) (int64, error) {
	ver, err := s.client.HGet(ctx, sessionKey(sessionID), fieldVersion).Int64()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session version: %w", err)
	}
	return ver, nil
}

func (s *RedisStore) ValidateAndTouch(ctx context.Context, sessionID string, presentedVersion int64, idleTimeout time.Duration) (bool, error) {
	res, err := validateAndTouchScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)},
		presentedVersion,
		s.nowF().Unix(),
		int64(idleTimeout.Seconds()),
		s.metaTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("validate session: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) SessionsForUser(ctx context.Context, userID string) ([]string, error) {
	sids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return sids, nil
}
