package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "quota:join:"

// refundScript decrements the counter unless it is missing or already zero.
var refundScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// JoinQuota counts joins per user per UTC day.
type JoinQuota struct {
	rdb     *redis.Client
	limit   int64
	nowFunc func() time.Time
}

// JoinQuotaArgs are the mandatory arguments for the creation of a JoinQuota
type JoinQuotaArgs struct {
	// Client is the redis client holding the counters.
	Client *redis.Client

	// Limit is the number of joins allowed per day.
	Limit int64
}

// JoinQuotaOptArgs are the optional arguments for building a JoinQuota
type JoinQuotaOptArgs = func(*JoinQuota)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) JoinQuotaOptArgs {
	return func(q *JoinQuota) {
		q.nowFunc = nowFunc
	}
}

// NewJoinQuota creates a new JoinQuota.
func NewJoinQuota(args JoinQuotaArgs, optArgs ...JoinQuotaOptArgs) (*JoinQuota, error) {
	if args.Client == nil {
		return nil, errors.New("nil redis client")
	}
	if args.Limit <= 0 {
		return nil, fmt.Errorf("invalid join quota [%d]", args.Limit)
	}
	q := &JoinQuota{rdb: args.Client, limit: args.Limit, nowFunc: time.Now}
	for _, opt := range optArgs {
		opt(q)
	}
	return q, nil
}

func (q *JoinQuota) key(userID uuid.UUID) string {
	return keyPrefix + userID.String() + ":" + q.nowFunc().UTC().Format(time.DateOnly)
}

// Take counts one join for the user and reports the day's usage and whether it is within the limit.
func (q *JoinQuota) Take(ctx context.Context, userID uuid.UUID) (used int64, allowed bool, err error) {
	key := q.key(userID)

	used, err = q.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("error incrementing join counter: %w", err)
	}
	if used == 1 {
		// the counter outlives the day so late requests near midnight still see it
		if err := q.rdb.Expire(ctx, key, 25*time.Hour).Err(); err != nil {
			return used, used <= q.limit, fmt.Errorf("error setting join counter expiry: %w", err)
		}
	}
	return used, used <= q.limit, nil
}

// Refund gives back a join taken today, for joins that were refused.
func (q *JoinQuota) Refund(ctx context.Context, userID uuid.UUID) error {
	if err := refundScript.Run(ctx, q.rdb, []string{q.key(userID)}).Err(); err != nil {
		return fmt.Errorf("error refunding join counter: %w", err)
	}
	return nil
}

// Limit is the number of joins allowed per day.
func (q *JoinQuota) Limit() int64 {
	return q.limit
}
