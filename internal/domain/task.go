package domain

import (
	"time"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

// Status represents the states an optimization task can be in.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal returns true when polling for the task must stop.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Task is a unit of asynchronous AI résumé optimization tied to one job.
type Task struct {
	ID          string            `json:"id"`
	JobID       string            `json:"jobId"`
	Title       string            `json:"title"`
	Company     string            `json:"company"`
	Link        string            `json:"link"`
	Description string            `json:"description"`
	Status      Status            `json:"status"`
	Resume      *resume.Snapshot  `json:"resume,omitempty"`
	Metadata    map[string]string `json:"resultMetadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	CompletedAt *time.Time        `json:"completedAt"`
	RetryCount  int               `json:"retryCount"`
	Error       string            `json:"error,omitempty"`
}

// Clone returns a deep copy so callers never share a task with the tracker.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Resume = t.Resume.Clone()
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		out.CompletedAt = &c
	}
	return &out
}

// Job is the posting a task optimizes against. It is owned by the REST
// backend; tasks reference it by JobID.
type Job struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Transition records one status change of a task. It is both the audit row
// and the event published to subscribers; Title and Company are carried for
// notifications and are not part of the audit trail.
type Transition struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	JobID      string    `json:"jobId"`
	Title      string    `json:"title,omitempty"`
	Company    string    `json:"company,omitempty"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	RetryCount int       `json:"retryCount"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
