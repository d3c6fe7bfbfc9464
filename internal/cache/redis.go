// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/tysiac/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains round changes from.
const DefaultQueueName = "tysiac_round_changes"

// ConnectRedis builds a client for addr and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Recorder queues accepted round changes for the historian. A Recorder without a
// client drops everything, which is how change history is switched off.
type Recorder struct {
	client *redis.Client
	queue  string
}

// NewRecorder returns a Recorder pushing onto queue. client may be nil.
func NewRecorder(client *redis.Client, queue string) *Recorder {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Recorder{client: client, queue: queue}
}

// Enabled reports whether records actually leave the process.
func (r *Recorder) Enabled() bool {
	return r != nil && r.client != nil
}

// Record serializes rec and pushes it onto the queue.
func (r *Recorder) Record(ctx context.Context, rec models.RoundChangeRecord) error {
	if !r.Enabled() {
		return nil
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundChangeRecord: %w", err)
	}
	if err := r.client.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}
