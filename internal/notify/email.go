package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// EmailConfig holds SMTP connection details.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSink mails notifications to a fixed recipient list.
type EmailSink struct {
	cfg  EmailConfig
	send sendMailFunc
}

func NewEmailSink(cfg EmailConfig) (*EmailSink, error) {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil, errors.New("email sink needs a host and at least one recipient")
	}
	return &EmailSink{cfg: cfg, send: smtp.SendMail}, nil
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Notify(ctx context.Context, tr *domain.Transition) error {
	ctx, span := otel.Tracer("notifier").Start(ctx, "sink.email")
	defer span.End()
	span.SetAttributes(attribute.Int("email.recipients", len(s.cfg.To)))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := buildMIME(s.cfg.From, s.cfg.To, Subject(tr), Text(tr))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	// smtp.SendMail takes no context; race it against ctx.
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.cfg.From, s.cfg.To, msg) }()

	select {
	case err := <-done:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "smtp send failed")
			return fmt.Errorf("smtp send via %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		err := fmt.Errorf("email send aborted: %w", ctx.Err())
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return err
	}
}

func buildMIME(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
