package domain_test

import (
	"testing"
	"time"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

func TestStatusConstants(t *testing.T) {
	tests := []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusWaiting, "WAITING"},
		{domain.StatusPending, "PENDING"},
		{domain.StatusProcessing, "PROCESSING"},
		{domain.StatusCompleted, "COMPLETED"},
		{domain.StatusFailed, "FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if string(tt.status) != tt.want {
				t.Errorf("Status value = %q, want %q", tt.status, tt.want)
			}
			if !tt.status.Valid() {
				t.Errorf("Valid(%q) = false, want true", tt.status)
			}
		})
	}
}

func TestStatusValid_Unknown(t *testing.T) {
	if domain.Status("DONE").Valid() {
		t.Error("Valid(DONE) = true, want false")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusCompleted, domain.StatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	for _, s := range []domain.Status{domain.StatusWaiting, domain.StatusPending, domain.StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}

func TestTaskClone_IsDeep(t *testing.T) {
	done := time.Now()
	orig := &domain.Task{
		ID:          "t1",
		Metadata:    map[string]string{"progress": "50"},
		CompletedAt: &done,
		Resume:      &resume.Snapshot{Work: []resume.Work{{Name: "Acme", Highlights: []string{"a"}}}},
	}
	cp := orig.Clone()
	cp.Metadata["progress"] = "90"
	cp.Resume.Work[0].Highlights[0] = "changed"
	*cp.CompletedAt = done.Add(time.Hour)

	if orig.Metadata["progress"] != "50" {
		t.Error("metadata map shared between clone and original")
	}
	if orig.Resume.Work[0].Highlights[0] != "a" {
		t.Error("resume highlights shared between clone and original")
	}
	if !orig.CompletedAt.Equal(done) {
		t.Error("completedAt pointer shared between clone and original")
	}
}
