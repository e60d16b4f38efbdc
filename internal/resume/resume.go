package resume

// Section keys used by Snapshot, export documents, and merge selections.
const (
	KeyBasics     = "basics"
	KeySkills     = "skills"
	KeyWork       = "work"
	KeyEducation  = "education"
	KeyProjects   = "projects"
	KeyActivities = "activities"
	KeyVolunteer  = "volunteer"
	KeyAwards     = "awards"
)

// Keys lists every top-level section of a Snapshot in export order.
var Keys = []string{
	KeyBasics, KeySkills, KeyWork, KeyEducation,
	KeyProjects, KeyActivities, KeyVolunteer, KeyAwards,
}

type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

type Profile struct {
	Network  string `json:"network"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
}

type Basics struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	URL      string    `json:"url,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Location Location  `json:"location"`
	Profiles []Profile `json:"profiles,omitempty"`
}

type Work struct {
	Name       string   `json:"name"`
	Position   string   `json:"position"`
	URL        string   `json:"url,omitempty"`
	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

type Education struct {
	Institution string   `json:"institution"`
	Area        string   `json:"area,omitempty"`
	StudyType   string   `json:"studyType,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Score       string   `json:"score,omitempty"`
	Courses     []string `json:"courses,omitempty"`
}

type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Skills groups skill names by category, e.g. "languages" -> ["Go", "SQL"].
type Skills map[string][]string

type Activity struct {
	Organization string   `json:"organization"`
	Role         string   `json:"role,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

type Volunteer struct {
	Organization string   `json:"organization"`
	Position     string   `json:"position,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

type Award struct {
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	Awarder string `json:"awarder,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Snapshot is a complete point-in-time copy of every résumé section. It is a
// value type: callers receive clones and never share slices across owners.
type Snapshot struct {
	Basics     Basics      `json:"basics"`
	Skills     Skills      `json:"skills"`
	Work       []Work      `json:"work"`
	Education  []Education `json:"education"`
	Projects   []Project   `json:"projects"`
	Activities []Activity  `json:"activities"`
	Volunteer  []Volunteer `json:"volunteer"`
	Awards     []Award     `json:"awards"`
}

// Clone returns a deep copy of s. A nil receiver yields nil; nil slices stay
// nil.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Basics: s.Basics, Skills: s.Skills.Clone()}
	out.Basics.Profiles = cloneEach(s.Basics.Profiles, func(p Profile) Profile { return p })
	out.Work = cloneEach(s.Work, func(w Work) Work {
		w.Highlights = cloneStrings(w.Highlights)
		return w
	})
	out.Education = cloneEach(s.Education, func(e Education) Education {
		e.Courses = cloneStrings(e.Courses)
		return e
	})
	out.Projects = cloneEach(s.Projects, func(p Project) Project {
		p.Highlights = cloneStrings(p.Highlights)
		p.Keywords = cloneStrings(p.Keywords)
		return p
	})
	out.Activities = cloneEach(s.Activities, func(a Activity) Activity {
		a.Highlights = cloneStrings(a.Highlights)
		return a
	})
	out.Volunteer = cloneEach(s.Volunteer, func(v Volunteer) Volunteer {
		v.Highlights = cloneStrings(v.Highlights)
		return v
	})
	out.Awards = cloneEach(s.Awards, func(a Award) Award { return a })
	return out
}

func cloneEach[T any](in []T, fn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// Clone returns a deep copy of the skill groups.
func (s Skills) Clone() Skills {
	if s == nil {
		return nil
	}
	out := make(Skills, len(s))
	for k, v := range s {
		out[k] = cloneStrings(v)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
