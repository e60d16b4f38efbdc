package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// Subject is a one-line summary of tr.
func Subject(tr *domain.Transition) string {
	switch tr.To {
	case domain.StatusCompleted:
		return "Résumé optimized for " + jobLabel(tr)
	case domain.StatusFailed:
		return "Résumé optimization failed for " + jobLabel(tr)
	}
	return fmt.Sprintf("Task %s is now %s", tr.TaskID, tr.To)
}

// Text is the plain-text body for tr.
func Text(tr *domain.Transition) string {
	var b strings.Builder
	b.WriteString(Subject(tr))
	fmt.Fprintf(&b, "\nTask: %s", tr.TaskID)
	if tr.RetryCount > 0 {
		fmt.Fprintf(&b, " (retry %d)", tr.RetryCount)
	}
	if tr.Error != "" {
		b.WriteString("\nError: " + tr.Error)
	}
	return b.String()
}

// HTML is the Telegram-flavoured body for tr.
func HTML(tr *domain.Transition) string {
	icon := "ℹ️"
	switch tr.To {
	case domain.StatusCompleted:
		icon = "✅"
	case domain.StatusFailed:
		icon = "⚠️"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", icon, html.EscapeString(Subject(tr)))
	fmt.Fprintf(&b, "🆔 <code>%s</code>", html.EscapeString(tr.TaskID))
	if tr.Error != "" {
		fmt.Fprintf(&b, "\n%s", html.EscapeString(tr.Error))
	}
	return b.String()
}

func jobLabel(tr *domain.Transition) string {
	switch {
	case tr.Title != "" && tr.Company != "":
		return tr.Title + " @ " + tr.Company
	case tr.Title != "":
		return tr.Title
	case tr.Company != "":
		return tr.Company
	}
	return "job " + tr.JobID
}
