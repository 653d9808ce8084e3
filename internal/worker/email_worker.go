package worker

// email_worker.go
// Sends backup and restore completion notices to the operator address over
// SMTP, through a circuit breaker so a dead relay is not hammered.

import (
	"context"
	"encoding/json"
	"fmt"

	"storekeep/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender is the SMTP side of the worker. *infra.Mailer satisfies it.
type Sender interface {
	Enabled() bool
	SendNotice(to, subject, body, attachment string) error
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
	to     string
}

// NewEmailWorker returns a worker sending notices to the address to.
func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker, to string) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb, to: to}
}

// Enabled reports whether notices can be delivered at all.
func (w *EmailWorker) Enabled() bool {
	return w.to != "" && w.sender.Enabled()
}

// NoticeFor builds the notice for a finished job.
func (w *EmailWorker) NoticeFor(job *BackupJob) EmailJobPayload {
	subject := fmt.Sprintf("[storekeep] %s %s", job.Kind, job.Status)
	body := fmt.Sprintf("Job %s (%s) finished with status %s.\n", job.ID, job.Kind, job.Status)
	if job.Filename != "" {
		body += "File: " + job.Filename + "\n"
	}
	if job.SizeBytes > 0 {
		body += fmt.Sprintf("Size: %d bytes\n", job.SizeBytes)
	}
	if job.Error != "" {
		body += "Error: " + job.Error + "\n"
	}
	return EmailJobPayload{ToEmail: w.to, Subject: subject, Body: body}
}

// Send delivers one notice through the circuit breaker.
func (w *EmailWorker) Send(p EmailJobPayload) error {
	if p.ToEmail == "" {
		return fmt.Errorf("email_worker: empty recipient")
	}
	err := w.cb.Execute(func() error {
		return w.sender.SendNotice(p.ToEmail, p.Subject, p.Body, "")
	})
	if err != nil {
		return err
	}
	log.Info().Str("to", p.ToEmail).Str("subject", p.Subject).Msg("email_worker: notice sent")
	return nil
}

// Process handles a raw QueueEmail payload.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	return w.Send(payload)
}
