package dto

import "time"

type BackupRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
}

type BackupInfo struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type BackupJobResponse struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`   // backup | restore
	Status     string     `json:"status"` // queued | running | done | failed
	Filename   string     `json:"filename,omitempty"`
	SizeBytes  int64      `json:"size_bytes,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// FailedJobResponse is one dead-lettered job.
type FailedJobResponse struct {
	Queue    string    `json:"queue"`
	JobType  string    `json:"job_type"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
