package worker

// dlq.go: Dead Letter Queue
// Jobs that fail are kept for manual inspection in a Redis list per source
// queue: dlq:{original_queue}. Backup jobs are not retried automatically since
// a failed pg_dump or psql run usually needs an operator.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
}

// DLQ reads and writes dead letter lists.
type DLQ struct {
	rdb *redis.Client
}

func NewDLQ(rdb *redis.Client) *DLQ { return &DLQ{rdb: rdb} }

// Push records a failed job. Errors are logged, never returned.
func (q *DLQ) Push(ctx context.Context, queue string, job Job, reason string) {
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := q.rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: failed to push")
		return
	}
	log.Warn().Str("queue", queue).Str("job_type", job.Type).Str("reason", reason).Msg("dlq: job moved to dead letter queue")
}

// Len returns the number of dead letters for queue.
func (q *DLQ) Len(ctx context.Context, queue string) (int64, error) {
	return q.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// Recent returns up to n newest entries for queue.
func (q *DLQ) Recent(ctx context.Context, queue string, n int64) ([]DLQEntry, error) {
	raw, err := q.rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
