// Package gateway is the HTTP client of the remote résumé optimization
// service. Every endpoint takes a JSON body and answers {"data": ...} on
// success or {"error": "..."} with a non-2xx status.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

const (
	EndpointParseJob            = "/parse-job"
	EndpointOptimizeExperiences = "/optimize/experiences"
	EndpointOptimizeProjects    = "/optimize/projects"
	EndpointOptimizeSkills      = "/optimize/skills"
	EndpointOptimizeSummary     = "/optimize/summary"
	EndpointCheckStatus         = "/check-status"
)

// maxErrorBody bounds how much of a failed response is kept in an error.
const maxErrorBody = 4 << 10

// ParsedJob is the service's structured reading of a job description. It is
// opaque to this client and passed back verbatim to the optimize endpoints.
type ParsedJob = json.RawMessage

// StatusResult is the answer of /check-status.
type StatusResult struct {
	Status   domain.Status     `json:"status"`
	Resume   *resume.Snapshot  `json:"resume,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Client calls the optimization service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseJob extracts structured requirements from a job description.
func (c *Client) ParseJob(ctx context.Context, description string) (ParsedJob, error) {
	return call[ParsedJob](ctx, c, EndpointParseJob, map[string]any{"jobDescription": description})
}

// OptimizeExperiences rewrites work entries for the parsed job.
func (c *Client) OptimizeExperiences(ctx context.Context, job ParsedJob, work []resume.Work) ([]resume.Work, error) {
	return call[[]resume.Work](ctx, c, EndpointOptimizeExperiences, map[string]any{"parsedJob": job, "experiences": work})
}

// OptimizeProjects rewrites project entries for the parsed job.
func (c *Client) OptimizeProjects(ctx context.Context, job ParsedJob, projects []resume.Project) ([]resume.Project, error) {
	return call[[]resume.Project](ctx, c, EndpointOptimizeProjects, map[string]any{"parsedJob": job, "projects": projects})
}

// OptimizeSkills reorganizes skill groups for the parsed job.
func (c *Client) OptimizeSkills(ctx context.Context, job ParsedJob, skills resume.Skills) (resume.Skills, error) {
	return call[resume.Skills](ctx, c, EndpointOptimizeSkills, map[string]any{"parsedJob": job, "skills": skills})
}

// OptimizeSummary rewrites the profile summary for the parsed job.
func (c *Client) OptimizeSummary(ctx context.Context, job ParsedJob, summary string) (string, error) {
	return call[string](ctx, c, EndpointOptimizeSummary, map[string]any{"parsedJob": job, "summary": summary})
}

// CheckStatus asks the service how far task taskID has progressed.
func (c *Client) CheckStatus(ctx context.Context, taskID string) (StatusResult, error) {
	res, err := call[StatusResult](ctx, c, EndpointCheckStatus, map[string]any{"taskId": taskID})
	if err != nil {
		return StatusResult{}, err
	}
	res.Status = domain.Status(strings.ToUpper(string(res.Status)))
	return res, nil
}

type envelope[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error"`
}

func call[T any](ctx context.Context, c *Client, endpoint string, body any) (T, error) {
	var zero T
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway"+endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("gateway.endpoint", endpoint))

	fail := func(err error, msg string) (T, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return zero, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("encode %s request: %w", endpoint, err), "encode failed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("build %s request: %w", endpoint, err), "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(&domain.RemoteServiceError{Endpoint: endpoint, Message: err.Error()}, "http call failed")
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(&domain.RemoteServiceError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.Status),
		}, "bad status code")
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fail(&domain.RemoteServiceError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    "malformed response: " + err.Error(),
		}, "decode failed")
	}
	if env.Error != "" {
		return fail(&domain.RemoteServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: env.Error}, "service error")
	}
	return env.Data, nil
}

// errorMessage prefers the {"error": ...} field of a failed response and
// falls back to the raw body, then to the status line.
func errorMessage(raw []byte, status string) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}

// IsStatus reports whether err is a RemoteServiceError with the given code.
func IsStatus(err error, code int) bool {
	var rErr *domain.RemoteServiceError
	return errors.As(err, &rErr) && rErr.StatusCode == code
}
