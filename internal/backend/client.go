// Package backend is the client of the REST service that owns jobs and the
// server-side copy of optimization tasks. Calls are not retried; a failure is
// returned to the caller, which keeps its local state unchanged.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// TaskResult is one entry of a bulk status check.
type TaskResult struct {
	TaskID string        `json:"taskId"`
	Status domain.Status `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// Client calls the REST backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs)
	return jobs, err
}

func (c *Client) CreateJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	var out domain.Job
	err := c.do(ctx, http.MethodPost, "/job", job, &out)
	return out, err
}

// UpdateJob replaces job on the backend. A 404 is reported as
// JobNotFoundError.
func (c *Client) UpdateJob(ctx context.Context, job domain.Job) error {
	err := c.do(ctx, http.MethodPut, "/job/"+url.PathEscape(job.ID), job, nil)
	return notFoundAs(err, &domain.JobNotFoundError{JobID: job.ID})
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/job/"+url.PathEscape(id), nil, nil)
	return notFoundAs(err, &domain.JobNotFoundError{JobID: id})
}

// CreateTasks registers several tasks in one call.
func (c *Client) CreateTasks(ctx context.Context, tasks []*domain.Task) ([]*domain.Task, error) {
	var out []*domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", tasks, &out)
	return out, err
}

// TaskResults checks the status of several tasks in one call.
func (c *Client) TaskResults(ctx context.Context, ids []string) ([]TaskResult, error) {
	var out []TaskResult
	err := c.do(ctx, http.MethodPost, "/tasks/results", map[string][]string{"taskIds": ids}, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, http.MethodPost, "/task", task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, task *domain.Task) error {
	err := c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(task.ID), task, nil)
	return notFoundAs(err, &domain.TaskNotFoundError{TaskID: task.ID})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, span := otel.Tracer("backend").Start(ctx, "backend "+method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http call failed")
		return &domain.RemoteServiceError{Endpoint: method + " " + path, Message: err.Error()}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		rErr := &domain.RemoteServiceError{Endpoint: method + " " + path, StatusCode: resp.StatusCode, Message: msg}
		span.RecordError(rErr)
		span.SetStatus(codes.Error, "bad status code")
		return rErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteServiceError{
			Endpoint:   method + " " + path,
			StatusCode: resp.StatusCode,
			Message:    "malformed response: " + err.Error(),
		}
	}
	return nil
}

func notFoundAs(err, notFound error) error {
	var rErr *domain.RemoteServiceError
	if errors.As(err, &rErr) && rErr.StatusCode == http.StatusNotFound {
		return notFound
	}
	return err
}
