package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/wellspring/core"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisQueueKey is the list key used when none is configured.
const DefaultRedisQueueKey = "wellspring:ingest"

// RedisOptions configures a RedisQueue.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0")
	URL string

	// Key is the list holding queued jobs.
	Key string

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}

// RedisQueue is a durable JobQueue backed by a Redis list. Jobs are pushed
// with LPUSH and popped with RPOP, so the list tail is the oldest job.
// Jobs still queued when the process stops are picked up by Pipeline.Resume.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var (
	_ JobQueue      = (*RedisQueue)(nil)
	_ pendingLister = (*RedisQueue)(nil)
)

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(opts RedisOptions) (*RedisQueue, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisQueueKey
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{client: client, key: opts.Key}, nil
}

func (q *RedisQueue) Push(ctx context.Context, job *core.IngestionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*core.IngestionJob, error) {
	data, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from queue %s: %w", q.key, err)
	}
	return decodeJob(data)
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length %s: %w", q.key, err)
	}
	return int(n), nil
}

// Pending lists queued jobs oldest first without removing them. Entries that
// cannot be decoded are skipped; Pop drops them when it reaches them.
func (q *RedisQueue) Pending(ctx context.Context) ([]*core.IngestionJob, error) {
	items, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue %s: %w", q.key, err)
	}
	jobs := make([]*core.IngestionJob, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		job, err := decodeJob([]byte(items[i]))
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func decodeJob(data []byte) (*core.IngestionJob, error) {
	var job core.IngestionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal job: %w", ErrCorruptJob, err)
	}
	return &job, nil
}
