package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backup job kinds.
const (
	KindBackup  = "backup"
	KindRestore = "restore"
)

// Job statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const (
	jobKeyPrefix = "backup:job:"
	jobTTL       = 7 * 24 * time.Hour
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// BackupJob is the status record of one backup or restore run.
type BackupJob struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Filename   string     `json:"filename,omitempty"`
	SizeBytes  int64      `json:"size_bytes,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobStore keeps job status records for follow-up reads.
type JobStore interface {
	Put(ctx context.Context, job *BackupJob) error
	Get(ctx context.Context, id string) (*BackupJob, error)
}

// RedisJobStore stores each job as a JSON string under backup:job:<id>.
type RedisJobStore struct {
	rdb *redis.Client
}

func NewRedisJobStore(rdb *redis.Client) *RedisJobStore {
	return &RedisJobStore{rdb: rdb}
}

func (s *RedisJobStore) Put(ctx context.Context, job *BackupJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err()
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*BackupJob, error) {
	data, err := s.rdb.Get(ctx, jobKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	var job BackupJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// MemoryJobStore is used when Redis is not configured.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]BackupJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]BackupJob)}
}

func (s *MemoryJobStore) Put(_ context.Context, job *BackupJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*BackupJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}
