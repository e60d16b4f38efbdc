package layout_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/layout"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
)

func sample() *resume.Snapshot {
	return &resume.Snapshot{
		Basics: resume.Basics{Name: "Ada Lovelace", Label: "Engineer", Summary: "Writes programs."},
		Skills: resume.Skills{"languages": {"Go", "SQL"}},
		Work: []resume.Work{{
			Name: "Engines Ltd", Position: "Programmer", StartDate: "1842",
			Highlights: []string{"First published algorithm"},
		}},
		Education: []resume.Education{{Institution: "Home", Area: "Mathematics"}},
	}
}

func ids(blocks []layout.Block) []sections.ID {
	out := make([]sections.ID, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Section)
	}
	return out
}

func TestSingleColumn_RendersInGivenOrder(t *testing.T) {
	tpl := layout.NewSingleColumn("classic", nil)
	in := layout.Input{
		Sections:  []sections.ID{"work", "intro", "skills"},
		Renderers: layout.DefaultRenderers(),
		Data:      sample(),
		Registry:  sections.DefaultRegistry(),
	}
	l := tpl.Compose(in)
	require.Len(t, l.Regions, 1)
	assert.Equal(t, []sections.ID{"work", "intro", "skills"}, ids(l.Regions[0].Blocks))
	assert.Equal(t, "Work Experience", l.Regions[0].Blocks[0].Title)
	assert.Contains(t, l.Regions[0].Blocks[0].Body, "Programmer @ Engines Ltd")
	assert.Contains(t, l.Regions[0].Blocks[0].Body, "1842 - Present")
	assert.Equal(t, layout.KindSingleColumn, l.Kind)
}

func TestCompose_OmitsSectionsNotInList(t *testing.T) {
	tpl := layout.NewSingleColumn("classic", nil)
	l := tpl.Compose(layout.Input{
		Sections:  []sections.ID{"intro"},
		Renderers: layout.DefaultRenderers(),
		Data:      sample(),
	})
	assert.Equal(t, []sections.ID{"intro"}, ids(l.Regions[0].Blocks))
	assert.Equal(t, "intro", l.Regions[0].Blocks[0].Title, "without a registry the id is the title")
}

func TestCompose_SkipsSectionsWithoutRenderer(t *testing.T) {
	tpl := layout.NewSingleColumn("classic", nil)
	l := tpl.Compose(layout.Input{
		Sections:  []sections.ID{"intro", "referral", "work"},
		Renderers: layout.DefaultRenderers(),
		Data:      sample(),
	})
	assert.Equal(t, []sections.ID{"intro", "work"}, ids(l.Regions[0].Blocks))
}

func TestTwoColumn_StablePartition(t *testing.T) {
	tpl := layout.NewTwoColumn("modern", []sections.ID{"skills", "intro"}, nil)
	order := []sections.ID{"work", "skills", "education", "intro", "summary"}
	l := tpl.Compose(layout.Input{Sections: order, Renderers: layout.DefaultRenderers(), Data: sample()})

	require.Len(t, l.Regions, 2)
	// Sidebar keeps the global relative order, not the sidebar declaration order.
	assert.Equal(t, []sections.ID{"skills", "intro"}, ids(l.Regions[0].Blocks))
	assert.Equal(t, []sections.ID{"work", "education", "summary"}, ids(l.Regions[1].Blocks))
}

func TestGrid_RowMajor(t *testing.T) {
	tpl := layout.NewGrid("compact", 2, nil)
	order := []sections.ID{"intro", "work", "skills", "education", "summary"}
	l := tpl.Compose(layout.Input{Sections: order, Renderers: layout.DefaultRenderers(), Data: sample()})

	require.Len(t, l.Regions, 2)
	assert.Equal(t, []sections.ID{"intro", "skills", "summary"}, ids(l.Regions[0].Blocks))
	assert.Equal(t, []sections.ID{"work", "education"}, ids(l.Regions[1].Blocks))
	assert.Equal(t, "column-2", l.Regions[1].Name)
}

func TestTemplateOverridesLayerOverDefaults(t *testing.T) {
	custom := layout.Renderers{"summary": func(*resume.Snapshot) string { return "custom" }}
	tpl := layout.NewSingleColumn("x", custom)
	l := tpl.Compose(layout.Input{
		Sections:  []sections.ID{"summary", "intro"},
		Renderers: layout.DefaultRenderers(),
		Data:      sample(),
	})
	assert.Equal(t, "custom", l.Regions[0].Blocks[0].Body)
	assert.Contains(t, l.Regions[0].Blocks[1].Body, "Ada Lovelace")
}

func TestRenderersWith_DoesNotMutateReceiver(t *testing.T) {
	defaults := layout.DefaultRenderers()
	_ = defaults.With(layout.Renderers{"labels": func(*resume.Snapshot) string { return "" }})
	_, ok := defaults["labels"]
	assert.False(t, ok)
}

func TestFromSpecs(t *testing.T) {
	reg := sections.DefaultRegistry()
	cat, err := layout.FromSpecs(sections.DefaultSpecs(reg))
	require.NoError(t, err)
	assert.Equal(t, len(sections.DefaultSpecs(reg)), cat.Len())

	tpl, err := cat.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "modern", tpl.Name())

	_, err = cat.Get(99)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = layout.FromSpecs([]sections.TemplateSpec{{Name: "bad", Layout: "masonry"}})
	assert.Error(t, err)
}

func TestDefaultSpecs_EveryOrderedSectionRenders(t *testing.T) {
	reg := sections.DefaultRegistry()
	renderers := layout.DefaultRenderers()
	for _, spec := range sections.DefaultSpecs(reg) {
		for _, id := range spec.SectionOrder {
			assert.Contains(t, renderers, id, "template %s orders %s", spec.Name, id)
		}
	}
}

func TestRender_FollowsModelVisibility(t *testing.T) {
	ctx := context.Background()
	reg := sections.DefaultRegistry()
	specs := sections.DefaultSpecs(reg)
	cat, err := layout.FromSpecs(specs)
	require.NoError(t, err)
	m := sections.NewModel(reg, sections.Configs(specs))

	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"intro", "education", "work"}))
	require.NoError(t, m.ToggleVisibility(ctx, "showEducation", false))

	l, err := layout.Render(m, cat, reg, sample())
	require.NoError(t, err)
	assert.Equal(t, []sections.ID{"intro", "work"}, ids(l.Regions[0].Blocks))
}

func TestTerminal(t *testing.T) {
	tpl := layout.NewTwoColumn("modern", []sections.ID{"skills"}, nil)
	l := tpl.Compose(layout.Input{
		Sections:  []sections.ID{"intro", "skills"},
		Renderers: layout.DefaultRenderers(),
		Data:      sample(),
		Registry:  sections.DefaultRegistry(),
	})
	out := l.Terminal(100)
	assert.Contains(t, out, "MODERN")
	assert.Contains(t, out, "Skills")
	assert.Contains(t, out, "Ada Lovelace")
	assert.True(t, strings.Count(out, "\n") > 3)
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	cat := layout.NewCatalog()
	cat.Register(layout.NewSingleColumn("a", nil))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); cat.Register(layout.NewGrid("g", 3, nil)) }()
		go func() { defer wg.Done(); _, _ = cat.Get(0) }()
	}
	wg.Wait()
	assert.Equal(t, 101, cat.Len())
}

func TestRenderTemplate_UsesThatTemplatesConfig(t *testing.T) {
	ctx := context.Background()
	reg := sections.DefaultRegistry()
	specs := sections.DefaultSpecs(reg)
	cat, err := layout.FromSpecs(specs)
	require.NoError(t, err)
	m := sections.NewModel(reg, sections.Configs(specs))

	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"work"}))

	other, err := layout.RenderTemplate(m, cat, reg, sample(), 1)
	require.NoError(t, err)
	assert.Equal(t, "modern", other.Template)
	assert.Equal(t, 0, m.ActiveTemplate(), "rendering another template does not select it")

	var all []sections.ID
	for _, r := range other.Regions {
		all = append(all, ids(r.Blocks)...)
	}
	assert.Greater(t, len(all), 1, "template 1 keeps its own order")

	_, err = layout.RenderTemplate(m, cat, reg, sample(), 42)
	assert.Error(t, err)
}
