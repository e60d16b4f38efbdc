package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

// Mode selects how a comparison is presented.
type Mode string

const (
	ModeHidden Mode = "hidden" // raw original and optimized text side by side
	ModeWords  Mode = "words"  // optimized text with inserted/removed spans
	ModeLines  Mode = "lines"  // line pairs side by side
)

// ParseMode maps a query value to a Mode. Empty means ModeHidden.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeHidden:
		return ModeHidden, nil
	case ModeWords, ModeLines:
		return Mode(s), nil
	}
	return "", &domain.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown diff mode %q", s)}
}

// Op is the kind of a diff span.
type Op string

const (
	OpEqual   Op = "equal"
	OpInsert  Op = "insert"
	OpDelete  Op = "delete"
	OpReplace Op = "replace" // line diff only
)

// Span is a run of text with one Op.
type Span struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// LinePair is one row of a side-by-side line diff. Left or Right is empty
// when the line exists on one side only.
type LinePair struct {
	Op    Op     `json:"op"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Comparison is the review view of one résumé section.
type Comparison struct {
	Section   string     `json:"section"`
	Original  string     `json:"original"`
	Optimized string     `json:"optimized"`
	Changed   bool       `json:"changed"`
	Words     []Span     `json:"words,omitempty"`
	Lines     []LinePair `json:"lines,omitempty"`
}

// WordDiff diffs the whitespace-collapsed forms of a and b word by word.
// Whitespace is kept as its own token so spans read naturally, e.g.
// "Built X" vs "Built X and Y" yields an insert of " and Y".
func WordDiff(a, b string) []Span {
	at, bt := tokenize(collapse(a)), tokenize(collapse(b))
	m := difflib.NewMatcherWithJunk(at, bt, false, nil)

	var spans []Span
	push := func(op Op, toks []string) {
		if len(toks) == 0 {
			return
		}
		text := strings.Join(toks, "")
		if n := len(spans); n > 0 && spans[n-1].Op == op {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Op: op, Text: text})
	}
	for _, oc := range m.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			push(OpEqual, at[oc.I1:oc.I2])
		case 'd':
			push(OpDelete, at[oc.I1:oc.I2])
		case 'i':
			push(OpInsert, bt[oc.J1:oc.J2])
		case 'r':
			push(OpDelete, at[oc.I1:oc.I2])
			push(OpInsert, bt[oc.J1:oc.J2])
		}
	}
	return spans
}

// LineDiff aligns the lines of a and b for side-by-side display. Replaced
// blocks are paired row by row; the longer side continues alone.
func LineDiff(a, b string) []LinePair {
	al, bl := splitLines(a), splitLines(b)
	m := difflib.NewMatcherWithJunk(al, bl, false, nil)

	var rows []LinePair
	for _, oc := range m.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			for i := oc.I1; i < oc.I2; i++ {
				rows = append(rows, LinePair{Op: OpEqual, Left: al[i], Right: bl[oc.J1+i-oc.I1]})
			}
		case 'd':
			for _, l := range al[oc.I1:oc.I2] {
				rows = append(rows, LinePair{Op: OpDelete, Left: l})
			}
		case 'i':
			for _, l := range bl[oc.J1:oc.J2] {
				rows = append(rows, LinePair{Op: OpInsert, Right: l})
			}
		case 'r':
			left, right := al[oc.I1:oc.I2], bl[oc.J1:oc.J2]
			for i := 0; i < len(left) || i < len(right); i++ {
				var row LinePair
				switch {
				case i < len(left) && i < len(right):
					row = LinePair{Op: OpReplace, Left: left[i], Right: right[i]}
				case i < len(left):
					row = LinePair{Op: OpDelete, Left: left[i]}
				default:
					row = LinePair{Op: OpInsert, Right: right[i]}
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// Compare builds a review view of every résumé section of orig and opt.
func Compare(orig, opt *resume.Snapshot, mode Mode) []Comparison {
	out := make([]Comparison, 0, len(resume.Keys))
	for _, key := range resume.Keys {
		a, _ := FromSection(orig, key)
		b, _ := FromSection(opt, key)
		c := Comparison{
			Section:   key,
			Original:  Normalize(a),
			Optimized: Normalize(b),
			Changed:   HasChanges(a, b),
		}
		switch mode {
		case ModeWords:
			c.Words = WordDiff(c.Original, c.Optimized)
		case ModeLines:
			c.Lines = LineDiff(c.Original, c.Optimized)
		}
		out = append(out, c)
	}
	return out
}

// Merge returns orig with every section named in keep taken whole from opt.
// No field-level merging happens.
func Merge(orig, opt *resume.Snapshot, keep []string) (*resume.Snapshot, error) {
	if orig == nil {
		orig = &resume.Snapshot{}
	}
	if opt == nil {
		return nil, &domain.ValidationError{Field: "resume", Reason: "task has no optimized result"}
	}
	out := orig.Clone()
	src := opt.Clone()
	for _, key := range keep {
		switch key {
		case resume.KeyBasics:
			out.Basics = src.Basics
		case resume.KeySkills:
			out.Skills = src.Skills
		case resume.KeyWork:
			out.Work = src.Work
		case resume.KeyEducation:
			out.Education = src.Education
		case resume.KeyProjects:
			out.Projects = src.Projects
		case resume.KeyActivities:
			out.Activities = src.Activities
		case resume.KeyVolunteer:
			out.Volunteer = src.Volunteer
		case resume.KeyAwards:
			out.Awards = src.Awards
		default:
			return nil, &domain.ValidationError{Field: "sections", Reason: fmt.Sprintf("unknown resume section %q", key)}
		}
	}
	return out, nil
}

// tokenize splits whitespace-collapsed text into words with a single-space
// token between each pair.
func tokenize(s string) []string {
	words := strings.Fields(s)
	toks := make([]string, 0, 2*len(words))
	for i, w := range words {
		if i > 0 {
			toks = append(toks, " ")
		}
		toks = append(toks, w)
	}
	return toks
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
