package service

import (
	"context"
	"errors"

	"storekeep/internal/apierror"
	"storekeep/internal/backup"
	"storekeep/internal/dto"
	"storekeep/internal/policy"
	"storekeep/internal/worker"

	"github.com/rs/zerolog/log"
)

// JobQueue runs backup and restore jobs asynchronously. *worker.Dispatcher satisfies it.
type JobQueue interface {
	EnqueueBackup(ctx context.Context) (*worker.BackupJob, error)
	EnqueueRestore(ctx context.Context, filename string) (*worker.BackupJob, error)
	Job(ctx context.Context, id string) (*worker.BackupJob, error)
	FailedJobs(ctx context.Context, n int64) ([]worker.DLQEntry, error)
}

// failedJobsLimit caps the dead letters returned per queue.
const failedJobsLimit = 50

// BackupService exposes backup management to super administrators. Creating and
// restoring return immediately with a job whose status can be polled.
type BackupService interface {
	List(ctx context.Context, actor policy.Actor) ([]dto.BackupInfo, error)
	Create(ctx context.Context, actor policy.Actor) (*dto.BackupJobResponse, error)
	Restore(ctx context.Context, actor policy.Actor, filename string) (*dto.BackupJobResponse, error)
	Delete(ctx context.Context, actor policy.Actor, filename string) error
	Job(ctx context.Context, actor policy.Actor, id string) (*dto.BackupJobResponse, error)
	FailedJobs(ctx context.Context, actor policy.Actor) ([]dto.FailedJobResponse, error)
}

type backupService struct {
	tool  backup.Tool
	queue JobQueue
}

func NewBackupService(tool backup.Tool, queue JobQueue) BackupService {
	return &backupService{tool: tool, queue: queue}
}

func (s *backupService) List(ctx context.Context, actor policy.Actor) ([]dto.BackupInfo, error) {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return nil, err
	}
	list, err := s.tool.ListBackups()
	if err != nil {
		return nil, apierror.Store("list backups", err)
	}
	resp := make([]dto.BackupInfo, len(list))
	for i, b := range list {
		resp[i] = dto.BackupInfo{Filename: b.Filename, SizeBytes: b.SizeBytes, CreatedAt: b.CreatedAt}
	}
	return resp, nil
}

func (s *backupService) Create(ctx context.Context, actor policy.Actor) (*dto.BackupJobResponse, error) {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return nil, err
	}
	job, err := s.queue.EnqueueBackup(ctx)
	if err != nil {
		return nil, apierror.Store("enqueue backup", err)
	}
	log.Info().Uint("actor_id", actor.ID).Str("job_id", job.ID).Msg("backup requested")
	return toJobResponse(job), nil
}

func (s *backupService) Restore(ctx context.Context, actor policy.Actor, filename string) (*dto.BackupJobResponse, error) {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return nil, err
	}
	if err := backup.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if err := s.mustExist(filename); err != nil {
		return nil, err
	}
	job, err := s.queue.EnqueueRestore(ctx, filename)
	if err != nil {
		return nil, apierror.Store("enqueue restore", err)
	}
	log.Warn().Uint("actor_id", actor.ID).Str("job_id", job.ID).Str("file", filename).Msg("restore requested")
	return toJobResponse(job), nil
}

func (s *backupService) Delete(ctx context.Context, actor policy.Actor, filename string) error {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return err
	}
	if err := s.tool.DeleteBackup(filename); err != nil {
		if k := apierror.KindOf(err); k == apierror.KindValidation || k == apierror.KindNotFound {
			return err
		}
		return apierror.Store("delete backup", err)
	}
	log.Info().Uint("actor_id", actor.ID).Str("file", filename).Msg("backup deleted")
	return nil
}

func (s *backupService) Job(ctx context.Context, actor policy.Actor, id string) (*dto.BackupJobResponse, error) {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return nil, err
	}
	job, err := s.queue.Job(ctx, id)
	if err != nil {
		if errors.Is(err, worker.ErrJobNotFound) {
			return nil, apierror.NotFound("job")
		}
		return nil, apierror.Store("load job", err)
	}
	return toJobResponse(job), nil
}

func (s *backupService) FailedJobs(ctx context.Context, actor policy.Actor) ([]dto.FailedJobResponse, error) {
	if err := policy.Authorize(actor, policy.ManageBackups, policy.Target{}); err != nil {
		return nil, err
	}
	entries, err := s.queue.FailedJobs(ctx, failedJobsLimit)
	if err != nil {
		return nil, apierror.Store("read failed jobs", err)
	}
	resp := make([]dto.FailedJobResponse, len(entries))
	for i, e := range entries {
		resp[i] = dto.FailedJobResponse{Queue: e.OriginalQueue, JobType: e.JobType, Reason: e.Reason, FailedAt: e.FailedAt}
	}
	return resp, nil
}

func (s *backupService) mustExist(filename string) error {
	list, err := s.tool.ListBackups()
	if err != nil {
		return apierror.Store("list backups", err)
	}
	for _, b := range list {
		if b.Filename == filename {
			return nil
		}
	}
	return apierror.NotFound("backup")
}

func toJobResponse(j *worker.BackupJob) *dto.BackupJobResponse {
	return &dto.BackupJobResponse{
		ID:         j.ID,
		Kind:       j.Kind,
		Status:     j.Status,
		Filename:   j.Filename,
		SizeBytes:  j.SizeBytes,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
	}
}
