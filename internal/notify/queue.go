package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the outbound intent queue contract. Enqueue schedules an
// intent to become due at readyAt; Due pops the next due intent, high
// priority first; Requeue reschedules a failed intent; Bury moves an
// intent whose retries are exhausted to the dead-letter list.
type Queue interface {
	Enqueue(ctx context.Context, intent Intent, readyAt time.Time) error
	Due(ctx context.Context, now time.Time) (*Intent, error)
	Requeue(ctx context.Context, intent Intent, readyAt time.Time) error
	Bury(ctx context.Context, intent Intent) error
}

// RedisQueue schedules intents on two sorted sets keyed by readiness
// time, one per dispatch priority, plus a dead-letter list.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue constructs the queue.
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) key(intent Intent) string {
	if intent.Kind.HighPriority() {
		return q.prefix + ":high"
	}
	return q.prefix + ":normal"
}

func (q *RedisQueue) Enqueue(ctx context.Context, intent Intent, readyAt time.Time) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.key(intent), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err()
}

// Due pops the earliest due intent. A single delivery worker runs per
// process, so read-then-remove on the sorted set does not race.
func (q *RedisQueue) Due(ctx context.Context, now time.Time) (*Intent, error) {
	for _, key := range []string{q.prefix + ":high", q.prefix + ":normal"} {
		members, err := q.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min:   "0",
			Max:   strconv.FormatInt(now.UnixMilli(), 10),
			Count: 1,
		}).Result()
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}
		if err := q.client.ZRem(ctx, key, members[0]).Err(); err != nil {
			return nil, err
		}
		var intent Intent
		if err := json.Unmarshal([]byte(members[0]), &intent); err != nil {
			return nil, err
		}
		return &intent, nil
	}
	return nil, nil
}

func (q *RedisQueue) Requeue(ctx context.Context, intent Intent, readyAt time.Time) error {
	return q.Enqueue(ctx, intent, readyAt)
}

func (q *RedisQueue) Bury(ctx context.Context, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.prefix+":dead", payload).Err()
}
