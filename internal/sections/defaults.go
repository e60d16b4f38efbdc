package sections

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// TemplateSpec is the compiled-in definition of one template: how it lays
// sections out and the config it starts with.
type TemplateSpec struct {
	Name    string `yaml:"name"`
	Layout  string `yaml:"layout"`
	Sidebar []ID   `yaml:"sidebar"`
	Columns int    `yaml:"columns"`
	TemplateConfig `yaml:",inline"`
}

type defaultsFile struct {
	Templates []TemplateSpec `yaml:"templates"`
}

// ParseSpecs decodes template specs from YAML and checks them against reg.
func ParseSpecs(data []byte, reg *Registry) ([]TemplateSpec, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse template defaults: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("template defaults: no templates defined")
	}
	for i := range f.Templates {
		spec := &f.Templates[i]
		if err := validateOrder(spec.SectionOrder, reg); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, spec.Name, err)
		}
		if spec.VisibilityFlags == nil {
			spec.VisibilityFlags = map[ConfigKey]bool{}
		}
	}
	return f.Templates, nil
}

// DefaultSpecs returns the built-in templates.
func DefaultSpecs(reg *Registry) []TemplateSpec {
	specs, err := ParseSpecs(defaultsYAML, reg)
	if err != nil {
		panic(err)
	}
	return specs
}

// Configs extracts the default config of every spec, by template index.
func Configs(specs []TemplateSpec) []TemplateConfig {
	out := make([]TemplateConfig, len(specs))
	for i, s := range specs {
		out[i] = s.TemplateConfig.Clone()
	}
	return out
}
