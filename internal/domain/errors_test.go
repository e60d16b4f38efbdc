package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

func TestTaskNotFoundError(t *testing.T) {
	err := &domain.TaskNotFoundError{TaskID: "abc-123"}
	if !strings.Contains(err.Error(), "abc-123") {
		t.Errorf("error message should contain task ID, got: %q", err.Error())
	}
}

func TestJobNotFoundError(t *testing.T) {
	err := &domain.JobNotFoundError{JobID: "job-9"}
	if !strings.Contains(err.Error(), "job-9") {
		t.Errorf("error message should contain job ID, got: %q", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := &domain.ValidationError{Field: "sectionOrder", Reason: "unknown section \"nope\""}
	msg := err.Error()
	if !strings.Contains(msg, "sectionOrder") || !strings.Contains(msg, "nope") {
		t.Errorf("error message should contain field and reason, got: %q", msg)
	}
}

func TestInvalidStateError(t *testing.T) {
	err := &domain.InvalidStateError{TaskID: "xyz-789", Status: domain.StatusCompleted, Op: "retry"}
	msg := err.Error()
	for _, want := range []string{"xyz-789", "COMPLETED", "retry"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message should contain %q, got: %q", want, msg)
		}
	}
}

func TestRemoteServiceError(t *testing.T) {
	err := &domain.RemoteServiceError{Endpoint: "/optimize/skills", StatusCode: 503, Message: "overloaded"}
	msg := err.Error()
	for _, want := range []string{"/optimize/skills", "503", "overloaded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message should contain %q, got: %q", want, msg)
		}
	}
}

func TestRateLimitExceededError(t *testing.T) {
	err := &domain.RateLimitExceededError{Key: "job-1", Limit: 100}
	msg := err.Error()
	if !strings.Contains(msg, "job-1") || !strings.Contains(msg, "100") {
		t.Errorf("error message should contain key and limit, got: %q", msg)
	}
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("retry task: %w", &domain.InvalidStateError{TaskID: "t1", Status: domain.StatusPending, Op: "retry"})
	var stateErr *domain.InvalidStateError
	if !errors.As(wrapped, &stateErr) {
		t.Fatal("errors.As should find InvalidStateError through %w wrapping")
	}
	if stateErr.TaskID != "t1" {
		t.Errorf("TaskID = %q, want t1", stateErr.TaskID)
	}
}

func TestAllErrorTypesImplementError(t *testing.T) {
	var _ error = &domain.TaskNotFoundError{}
	var _ error = &domain.JobNotFoundError{}
	var _ error = &domain.ValidationError{}
	var _ error = &domain.InvalidStateError{}
	var _ error = &domain.RemoteServiceError{}
	var _ error = &domain.RateLimitExceededError{}
}
