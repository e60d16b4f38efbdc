package domain

import "fmt"

// TaskNotFoundError is returned when a task ID does not exist.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// JobNotFoundError is returned when a job ID does not exist.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// ValidationError is returned for malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError is returned when an operation is not allowed from the
// task's current status, e.g. retrying a task that has not failed.
type InvalidStateError struct {
	TaskID string
	Status Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s task %s in status %s", e.Op, e.TaskID, e.Status)
}

// RemoteServiceError is returned when the optimization gateway or the REST
// backend answers with a non-2xx status.
type RemoteServiceError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("remote %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// RateLimitExceededError is returned when a key exceeds its rate limit.
type RateLimitExceededError struct {
	Key   string
	Limit int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: limit is %d", e.Key, e.Limit)
}
