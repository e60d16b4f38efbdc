package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
)

// Renderer turns the résumé data of one section into display text. An empty
// result means the section has nothing to show.
type Renderer func(snap *resume.Snapshot) string

// Renderers maps section ids to their renderer.
type Renderers map[sections.ID]Renderer

// With returns a copy of r with overrides layered on top.
func (r Renderers) With(overrides Renderers) Renderers {
	out := make(Renderers, len(r)+len(overrides))
	for id, fn := range r {
		out[id] = fn
	}
	for id, fn := range overrides {
		out[id] = fn
	}
	return out
}

// DefaultRenderers returns the plain-text renderer of every section that has
// résumé data behind it. Sections without one are skipped by templates.
func DefaultRenderers() Renderers {
	return Renderers{
		"intro":        renderIntro,
		"summary":      func(s *resume.Snapshot) string { return s.Basics.Summary },
		"work":         renderWork,
		"education":    renderEducation,
		"projects":     renderProjects,
		"skills":       renderSkills,
		"awards":       renderAwards,
		"volunteering": renderVolunteer,
		"activities":   renderActivities,
	}
}

func renderIntro(s *resume.Snapshot) string {
	b := s.Basics
	lines := nonEmpty(b.Name, b.Label, joinNonEmpty(" · ", b.Email, b.Phone, b.URL), location(b.Location))
	for _, p := range b.Profiles {
		lines = append(lines, joinNonEmpty(": ", p.Network, firstNonEmpty(p.Username, p.URL)))
	}
	return strings.Join(lines, "\n")
}

func renderWork(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Work))
	for _, w := range s.Work {
		head := joinNonEmpty(" @ ", w.Position, w.Name)
		blocks = append(blocks, entry(head, period(w.StartDate, w.EndDate), w.Summary, w.Highlights))
	}
	return strings.Join(blocks, "\n\n")
}

func renderEducation(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Education))
	for _, e := range s.Education {
		head := joinNonEmpty(", ", joinNonEmpty(" in ", e.StudyType, e.Area), e.Institution)
		blocks = append(blocks, entry(head, period(e.StartDate, e.EndDate), e.Score, e.Courses))
	}
	return strings.Join(blocks, "\n\n")
}

func renderProjects(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Projects))
	for _, p := range s.Projects {
		hl := p.Highlights
		if len(p.Keywords) > 0 {
			hl = append(append([]string(nil), hl...), "Keywords: "+strings.Join(p.Keywords, ", "))
		}
		blocks = append(blocks, entry(p.Name, period(p.StartDate, p.EndDate), p.Description, hl))
	}
	return strings.Join(blocks, "\n\n")
}

func renderSkills(s *resume.Snapshot) string {
	groups := make([]string, 0, len(s.Skills))
	for g := range s.Skills {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(s.Skills[g]) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", g, strings.Join(s.Skills[g], ", ")))
	}
	return strings.Join(lines, "\n")
}

// inlineSkills lists every skill on one line, for narrow sidebars.
func inlineSkills(s *resume.Snapshot) string {
	var all []string
	for _, names := range s.Skills {
		all = append(all, names...)
	}
	sort.Strings(all)
	return strings.Join(all, " · ")
}

// compactWork renders one line per position.
func compactWork(s *resume.Snapshot) string {
	lines := make([]string, 0, len(s.Work))
	for _, w := range s.Work {
		lines = append(lines, joinNonEmpty(" | ", joinNonEmpty(" @ ", w.Position, w.Name), period(w.StartDate, w.EndDate)))
	}
	return strings.Join(lines, "\n")
}

func renderAwards(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Awards))
	for _, a := range s.Awards {
		blocks = append(blocks, entry(joinNonEmpty(", ", a.Title, a.Awarder), a.Date, a.Summary, nil))
	}
	return strings.Join(blocks, "\n\n")
}

func renderVolunteer(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Volunteer))
	for _, v := range s.Volunteer {
		blocks = append(blocks, entry(joinNonEmpty(" @ ", v.Position, v.Organization), period(v.StartDate, v.EndDate), v.Summary, v.Highlights))
	}
	return strings.Join(blocks, "\n\n")
}

func renderActivities(s *resume.Snapshot) string {
	blocks := make([]string, 0, len(s.Activities))
	for _, a := range s.Activities {
		blocks = append(blocks, entry(joinNonEmpty(" @ ", a.Role, a.Organization), period(a.StartDate, a.EndDate), a.Summary, a.Highlights))
	}
	return strings.Join(blocks, "\n\n")
}

func entry(head, when, summary string, highlights []string) string {
	lines := nonEmpty(head, when, summary)
	for _, h := range highlights {
		lines = append(lines, "• "+h)
	}
	return strings.Join(lines, "\n")
}

func period(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " - Present"
	case start == "":
		return end
	}
	return start + " - " + end
}

func location(l resume.Location) string {
	return joinNonEmpty(", ", l.City, l.Region, l.Country)
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(nonEmpty(parts...), sep)
}

func firstNonEmpty(parts ...string) string {
	for _, p := range parts {
		if p != "" {
			return p
		}
	}
	return ""
}
