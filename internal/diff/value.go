// Package diff renders résumé sections to comparable text and reports how an
// optimized section differs from the original.
package diff

import (
	"sort"
	"strings"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

// Value is one résumé section in comparable form. The set of implementations
// is closed: TextSection, ListSection and SkillGroup.
type Value interface {
	isValue()
}

// TextSection is free text such as a markdown summary.
type TextSection string

// Entry is one item of a list section. Empty fields are skipped when
// normalizing.
type Entry struct {
	Fields     []string
	Highlights []string
}

// ListSection is an ordered list of structured entries (work, projects...).
type ListSection struct {
	Entries []Entry
}

// SkillGroup is skills grouped by category.
type SkillGroup map[string][]string

func (TextSection) isValue() {}
func (ListSection) isValue() {}
func (SkillGroup) isValue()  {}

// Normalize renders v as flat text:
//
//	text   passes through unchanged
//	list   "field\nfield\n• highlight" per entry, entries joined by a blank line
//	skills every skill of every group, sorted, joined by ", "
func Normalize(v Value) string {
	switch v := v.(type) {
	case TextSection:
		return string(v)
	case ListSection:
		blocks := make([]string, 0, len(v.Entries))
		for _, e := range v.Entries {
			var lines []string
			for _, f := range e.Fields {
				if strings.TrimSpace(f) != "" {
					lines = append(lines, f)
				}
			}
			for _, h := range e.Highlights {
				lines = append(lines, "• "+h)
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
		return strings.Join(blocks, "\n\n")
	case SkillGroup:
		var all []string
		for _, names := range v {
			all = append(all, names...)
		}
		sort.Strings(all)
		return strings.Join(all, ", ")
	case nil:
		return ""
	}
	return ""
}

// HasChanges reports whether a and b differ once whitespace runs are
// collapsed to single spaces and the ends trimmed. The comparison is exact.
func HasChanges(a, b Value) bool {
	return collapse(Normalize(a)) != collapse(Normalize(b))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FromSection extracts the section named key from snap. For basics only the
// summary is compared; it is the part the optimizer rewrites.
func FromSection(snap *resume.Snapshot, key string) (Value, bool) {
	if snap == nil {
		snap = &resume.Snapshot{}
	}
	switch key {
	case resume.KeyBasics:
		return TextSection(snap.Basics.Summary), true
	case resume.KeySkills:
		return SkillGroup(snap.Skills), true
	case resume.KeyWork:
		return listOf(snap.Work, func(w resume.Work) Entry {
			return Entry{Fields: []string{w.Position, w.Name, period(w.StartDate, w.EndDate), w.Summary}, Highlights: w.Highlights}
		}), true
	case resume.KeyEducation:
		return listOf(snap.Education, func(e resume.Education) Entry {
			return Entry{Fields: []string{strings.TrimSpace(e.StudyType + " " + e.Area), e.Institution, period(e.StartDate, e.EndDate), e.Score}, Highlights: e.Courses}
		}), true
	case resume.KeyProjects:
		return listOf(snap.Projects, func(p resume.Project) Entry {
			return Entry{Fields: []string{p.Name, p.Description, period(p.StartDate, p.EndDate)}, Highlights: p.Highlights}
		}), true
	case resume.KeyActivities:
		return listOf(snap.Activities, func(a resume.Activity) Entry {
			return Entry{Fields: []string{a.Role, a.Organization, period(a.StartDate, a.EndDate), a.Summary}, Highlights: a.Highlights}
		}), true
	case resume.KeyVolunteer:
		return listOf(snap.Volunteer, func(v resume.Volunteer) Entry {
			return Entry{Fields: []string{v.Position, v.Organization, period(v.StartDate, v.EndDate), v.Summary}, Highlights: v.Highlights}
		}), true
	case resume.KeyAwards:
		return listOf(snap.Awards, func(a resume.Award) Entry {
			return Entry{Fields: []string{a.Title, a.Awarder, a.Date, a.Summary}}
		}), true
	}
	return nil, false
}

func listOf[T any](items []T, fn func(T) Entry) ListSection {
	out := ListSection{Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		out.Entries = append(out.Entries, fn(it))
	}
	return out
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
