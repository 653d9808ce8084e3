package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storekeep/internal/backup"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueBackup = "jobs:backup"
	QueueEmail  = "jobs:email"
)

const jobTypeEmail = "email"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher accepts backup and restore requests and runs them off the request path.
// With a Redis client, jobs are pushed onto Redis lists and executed by the worker
// pool via BRPOP. Without one, each job runs in its own goroutine.
type Dispatcher struct {
	rdb      *redis.Client
	jobs     JobStore
	tool     backup.Tool
	notifier *EmailWorker
	now      func() time.Time
	inline   sync.WaitGroup
}

// NewDispatcher wires the job queue. rdb and notifier may be nil.
func NewDispatcher(rdb *redis.Client, jobs JobStore, tool backup.Tool, notifier *EmailWorker) *Dispatcher {
	return &Dispatcher{
		rdb:      rdb,
		jobs:     jobs,
		tool:     tool,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnqueueBackup schedules a new database dump.
func (d *Dispatcher) EnqueueBackup(ctx context.Context) (*BackupJob, error) {
	return d.submit(ctx, KindBackup, "")
}

// EnqueueRestore schedules a restore of filename.
func (d *Dispatcher) EnqueueRestore(ctx context.Context, filename string) (*BackupJob, error) {
	return d.submit(ctx, KindRestore, filename)
}

// Job returns the latest status of a job.
func (d *Dispatcher) Job(ctx context.Context, id string) (*BackupJob, error) {
	return d.jobs.Get(ctx, id)
}

// FailedJobs returns up to n of the newest dead letters from each queue.
// Without Redis nothing is dead-lettered and the result is empty.
func (d *Dispatcher) FailedJobs(ctx context.Context, n int64) ([]DLQEntry, error) {
	if d.rdb == nil {
		return nil, nil
	}
	dlq := NewDLQ(d.rdb)
	var out []DLQEntry
	for _, q := range []string{QueueBackup, QueueEmail} {
		entries, err := dlq.Recent(ctx, q, n)
		if err != nil {
			return nil, fmt.Errorf("read dlq %s: %w", q, err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Wait blocks until every in-process job has finished.
func (d *Dispatcher) Wait() { d.inline.Wait() }

func (d *Dispatcher) submit(ctx context.Context, kind, filename string) (*BackupJob, error) {
	job := &BackupJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusQueued,
		Filename:  filename,
		CreatedAt: d.now(),
	}
	if err := d.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}
	queued := *job

	if d.rdb == nil {
		d.inline.Add(1)
		go func() {
			defer d.inline.Done()
			_ = d.Execute(context.Background(), job)
		}()
		return &queued, nil
	}

	if err := d.enqueue(ctx, QueueBackup, kind, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	log.Info().Str("job_id", job.ID).Str("kind", kind).Msg("backup job queued")
	return &queued, nil
}

// Execute runs one job to completion and records its outcome.
func (d *Dispatcher) Execute(ctx context.Context, job *BackupJob) error {
	job.Status = StatusRunning
	d.save(ctx, job)

	var err error
	switch job.Kind {
	case KindBackup:
		job.Filename, err = d.tool.CreateBackup(ctx)
		if err == nil {
			d.recordSize(job)
		}
	case KindRestore:
		err = d.tool.RestoreBackup(ctx, job.Filename)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	finished := d.now()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Error().Err(err).Str("job_id", job.ID).Str("kind", job.Kind).Msg("backup job failed")
	} else {
		job.Status = StatusDone
		log.Info().Str("job_id", job.ID).Str("kind", job.Kind).Str("file", job.Filename).
			Int64("size_bytes", job.SizeBytes).Msg("backup job done")
	}
	d.save(ctx, job)
	d.notify(ctx, job)
	return err
}

// recordSize stores the dump size on the job. A failed stat leaves it at zero.
func (d *Dispatcher) recordSize(job *BackupJob) {
	size, err := d.tool.BackupSize(job.Filename)
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Str("file", job.Filename).Msg("backup size unavailable")
		return
	}
	job.SizeBytes = size
}

// EnqueueEmail pushes a notice onto the email queue, or sends it directly without Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	if d.notifier == nil {
		return errors.New("no mailer configured")
	}
	if d.rdb == nil {
		return d.notifier.Send(payload)
	}
	return d.enqueue(ctx, QueueEmail, jobTypeEmail, payload)
}

func (d *Dispatcher) notify(ctx context.Context, job *BackupJob) {
	if d.notifier == nil || !d.notifier.Enabled() {
		return
	}
	if err := d.EnqueueEmail(ctx, d.notifier.NoticeFor(job)); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("backup notice not sent")
	}
}

func (d *Dispatcher) save(ctx context.Context, job *BackupJob) {
	if err := d.jobs.Put(ctx, job); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("job status not saved")
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, d *Dispatcher, numWorkers int) {
	if d.rdb == nil {
		log.Info().Msg("worker pool disabled: jobs run in-process")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, d, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, d *Dispatcher, id int) {
	queues := []string{QueueBackup, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, d, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, d *Dispatcher, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var err error
	switch job.Type {
	case KindBackup, KindRestore:
		var bj BackupJob
		if err = json.Unmarshal(job.Payload, &bj); err == nil {
			err = d.Execute(ctx, &bj)
		}
	case jobTypeEmail:
		if d.notifier == nil {
			log.Warn().Msg("email job dropped: no mailer configured")
			return
		}
		err = d.notifier.Process(ctx, job.Payload)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}
	if err != nil {
		NewDLQ(d.rdb).Push(ctx, queue, job, err.Error())
	}
}
