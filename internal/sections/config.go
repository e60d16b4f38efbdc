package sections

// TemplateConfig is the section order and visibility of one template.
type TemplateConfig struct {
	SectionOrder    []ID               `json:"sectionOrder" yaml:"order"`
	VisibilityFlags map[ConfigKey]bool `json:"visibilityFlags" yaml:"flags"`
}

// Clone returns a deep copy of c.
func (c TemplateConfig) Clone() TemplateConfig {
	out := TemplateConfig{
		SectionOrder:    append([]ID{}, c.SectionOrder...),
		VisibilityFlags: make(map[ConfigKey]bool, len(c.VisibilityFlags)),
	}
	for k, v := range c.VisibilityFlags {
		out.VisibilityFlags[k] = v
	}
	return out
}

// Filter returns the ids of order that should be rendered, in order.
//
// A section is kept when its visibility flag is not explicitly false; a
// missing flag means visible. Unregistered ids and repeats are dropped so the
// result never contains an unknown or duplicate id, even for corrupt
// persisted configs.
func Filter(order []ID, flags map[ConfigKey]bool, reg *Registry) []ID {
	out := make([]ID, 0, len(order))
	seen := make(map[ID]bool, len(order))
	for _, id := range order {
		d, ok := reg.Get(id)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if v, set := flags[d.VisibilityKey]; set && !v {
			continue
		}
		out = append(out, id)
	}
	return out
}
