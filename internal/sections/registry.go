package sections

import "fmt"

// ID identifies a résumé section kind, e.g. "education".
type ID string

// ConfigKey names a visibility flag in a TemplateConfig, e.g. "showEducation".
type ConfigKey string

// Descriptor is the static description of one section kind.
type Descriptor struct {
	ID            ID        `json:"id"`
	DisplayName   string    `json:"displayName"`
	VisibilityKey ConfigKey `json:"visibilityKey"`
}

// Registry is the read-only catalog of known sections.
type Registry struct {
	byID  map[ID]Descriptor
	byKey map[ConfigKey]ID
	order []ID
}

// NewRegistry builds a registry from descs. Duplicate ids or visibility keys
// are rejected.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		byID:  make(map[ID]Descriptor, len(descs)),
		byKey: make(map[ConfigKey]ID, len(descs)),
	}
	for _, d := range descs {
		if d.ID == "" || d.VisibilityKey == "" {
			return nil, fmt.Errorf("section descriptor %+v: id and visibility key are required", d)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate section id %q", d.ID)
		}
		if _, dup := r.byKey[d.VisibilityKey]; dup {
			return nil, fmt.Errorf("duplicate visibility key %q", d.VisibilityKey)
		}
		r.byID[d.ID] = d
		r.byKey[d.VisibilityKey] = d.ID
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// DefaultRegistry returns the catalog of every section the editor supports.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Descriptor{ID: "intro", DisplayName: "Intro", VisibilityKey: "showIntro"},
		Descriptor{ID: "summary", DisplayName: "Summary", VisibilityKey: "showSummary"},
		Descriptor{ID: "education", DisplayName: "Education", VisibilityKey: "showEducation"},
		Descriptor{ID: "work", DisplayName: "Work Experience", VisibilityKey: "showWork"},
		Descriptor{ID: "projects", DisplayName: "Projects", VisibilityKey: "showProjects"},
		Descriptor{ID: "skills", DisplayName: "Skills", VisibilityKey: "showSkills"},
		Descriptor{ID: "awards", DisplayName: "Awards", VisibilityKey: "showAwards"},
		Descriptor{ID: "volunteering", DisplayName: "Volunteering", VisibilityKey: "showVolunteering"},
		Descriptor{ID: "activities", DisplayName: "Activities", VisibilityKey: "showActivities"},
		Descriptor{ID: "labels", DisplayName: "Labels", VisibilityKey: "showLabels"},
		Descriptor{ID: "referral", DisplayName: "Referral", VisibilityKey: "showReferral"},
		Descriptor{ID: "practices", DisplayName: "Practices", VisibilityKey: "showPractices"},
		Descriptor{ID: "involvements", DisplayName: "Involvements", VisibilityKey: "showInvolvements"},
		Descriptor{ID: "achievements", DisplayName: "Achievements", VisibilityKey: "showAchievements"},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the descriptor for id.
func (r *Registry) Get(id ID) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByKey returns the section id owning a visibility key.
func (r *Registry) ByKey(key ConfigKey) (ID, bool) {
	id, ok := r.byKey[key]
	return id, ok
}

// AllIDs returns every registered id in registration order.
func (r *Registry) AllIDs() []ID {
	return append([]ID(nil), r.order...)
}

// DisplayName returns the human-readable name, or the id itself when the
// section is not registered.
func (r *Registry) DisplayName(id ID) string {
	if d, ok := r.byID[id]; ok {
		return d.DisplayName
	}
	return string(id)
}
