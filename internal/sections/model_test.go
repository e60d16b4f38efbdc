package sections_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

// ── fakes ────────────────────────────────────────────────────────────────────

// failingStore wraps a Memory collection and fails every Set once armed.
type failingStore struct {
	*store.Memory
	fail bool
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, idx store.Index) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.Memory.Set(ctx, key, value, idx)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func newTestModel(t *testing.T, opts ...sections.Option) (*sections.Model, *sections.Registry) {
	t.Helper()
	reg := sections.DefaultRegistry()
	defaults := []sections.TemplateConfig{
		{SectionOrder: []sections.ID{"intro", "education", "work"}, VisibilityFlags: map[sections.ConfigKey]bool{}},
		{SectionOrder: []sections.ID{"intro", "skills"}, VisibilityFlags: map[sections.ConfigKey]bool{"showAwards": false}},
		{SectionOrder: []sections.ID{"work"}, VisibilityFlags: map[sections.ConfigKey]bool{}},
	}
	return sections.NewModel(reg, defaults, opts...), reg
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestToggleVisibility_ReshowWithoutReAddingStaysHidden(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)

	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"intro", "education", "work"}))
	require.NoError(t, m.ToggleVisibility(ctx, "showEducation", false))
	assert.Equal(t, []sections.ID{"intro", "work"}, m.Visible())
	assert.Equal(t, []sections.ID{"intro", "education", "work"}, m.SectionOrder(), "hiding must not mutate the order")

	// Remove education from the order, then show it again without re-adding.
	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"intro", "work"}))
	require.NoError(t, m.ToggleVisibility(ctx, "showEducation", true))
	assert.Equal(t, []sections.ID{"intro", "work"}, m.Visible(),
		"a visible flag alone does not put a section back into the order")
}

func TestVisibilityDefault_AbsentKeyIsVisible(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)

	cfg := m.CurrentConfig()
	_, set := cfg.VisibilityFlags["showWork"]
	require.False(t, set)
	assert.Contains(t, m.Visible(), sections.ID("work"))

	require.NoError(t, m.ToggleVisibility(ctx, "showWork", false))
	assert.NotContains(t, m.Visible(), sections.ID("work"))
	assert.Equal(t, []sections.ID{"intro", "education", "work"}, m.SectionOrder())
}

func TestUpdateSectionOrder_RejectsUnknownAndDuplicate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)
	before := m.SectionOrder()

	var vErr *domain.ValidationError
	err := m.UpdateSectionOrder(ctx, []sections.ID{"intro", "bogus"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sectionOrder", vErr.Field)

	err = m.UpdateSectionOrder(ctx, []sections.ID{"intro", "intro"})
	require.ErrorAs(t, err, &vErr)

	assert.Equal(t, before, m.SectionOrder(), "rejected orders leave state untouched")
}

func TestToggleVisibility_UnknownKey(t *testing.T) {
	m, _ := newTestModel(t)
	var vErr *domain.ValidationError
	require.ErrorAs(t, m.ToggleVisibility(context.Background(), "showNothing", false), &vErr)
}

func TestOrderIntegrity_RandomOperations(t *testing.T) {
	ctx := context.Background()
	m, reg := newTestModel(t)
	ids := reg.AllIDs()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 {
			// Random subset, possibly with repeats and unknown ids; invalid
			// orders are rejected and must not corrupt state.
			n := rng.Intn(len(ids) + 2)
			order := make([]sections.ID, 0, n)
			for j := 0; j < n; j++ {
				if rng.Intn(10) == 0 {
					order = append(order, "unknown")
					continue
				}
				order = append(order, ids[rng.Intn(len(ids))])
			}
			_ = m.UpdateSectionOrder(ctx, order)
		} else {
			d, _ := reg.Get(ids[rng.Intn(len(ids))])
			require.NoError(t, m.ToggleVisibility(ctx, d.VisibilityKey, rng.Intn(2) == 0))
		}

		visible := m.Visible()
		seen := map[sections.ID]bool{}
		for _, id := range visible {
			_, ok := reg.Get(id)
			require.True(t, ok, "render list contains unregistered id %q", id)
			require.False(t, seen[id], "render list contains duplicate id %q", id)
			seen[id] = true
		}
	}
}

func TestResetToDefault_IsolatesOtherTemplates(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)

	// Customize templates 0 and 1.
	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"work", "intro"}))
	require.NoError(t, m.ToggleVisibility(ctx, "showIntro", false))
	require.NoError(t, m.SelectTemplate(ctx, 1))
	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"skills", "intro", "awards"}))

	before0, err := m.Config(0)
	require.NoError(t, err)
	raw0, _ := json.Marshal(before0)
	before2, _ := m.Config(2)
	raw2, _ := json.Marshal(before2)

	require.NoError(t, m.ResetToDefault(ctx, 1))

	cfg1, _ := m.Config(1)
	assert.Equal(t, []sections.ID{"intro", "skills"}, cfg1.SectionOrder)
	assert.Equal(t, map[sections.ConfigKey]bool{"showAwards": false}, cfg1.VisibilityFlags)

	after0, _ := m.Config(0)
	after0Raw, _ := json.Marshal(after0)
	after2, _ := m.Config(2)
	after2Raw, _ := json.Marshal(after2)
	assert.Equal(t, string(raw0), string(after0Raw), "template 0 must be unchanged")
	assert.Equal(t, string(raw2), string(after2Raw), "template 2 must be unchanged")
}

func TestResetToDefault_DefaultsNotAliased(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)
	require.NoError(t, m.ToggleVisibility(ctx, "showWork", false))
	require.NoError(t, m.ResetToDefault(ctx, 0))
	require.NoError(t, m.ToggleVisibility(ctx, "showIntro", false))
	require.NoError(t, m.ResetToDefault(ctx, 0))
	assert.Empty(t, m.CurrentConfig().VisibilityFlags)
}

func TestSelectTemplate_OutOfRange(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)
	var vErr *domain.ValidationError
	require.ErrorAs(t, m.SelectTemplate(ctx, 3), &vErr)
	require.ErrorAs(t, m.SelectTemplate(ctx, -1), &vErr)
	assert.Equal(t, 0, m.ActiveTemplate())
	require.ErrorAs(t, m.ResetToDefault(ctx, 7), &vErr)
}

func TestSelectTemplate_ReadsFollowActiveTemplate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModel(t)
	require.NoError(t, m.SelectTemplate(ctx, 2))
	assert.Equal(t, []sections.ID{"work"}, m.SectionOrder())
	assert.Equal(t, 2, m.ActiveTemplate())
}

func TestSetVisibility_ManagedOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled behaves like toggle", func(t *testing.T) {
		m, _ := newTestModel(t)
		require.NoError(t, m.SetVisibility(ctx, "skills", true))
		assert.NotContains(t, m.SectionOrder(), sections.ID("skills"))
	})

	t.Run("enabled appends missing section", func(t *testing.T) {
		m, _ := newTestModel(t, sections.WithManagedOrder())
		require.NoError(t, m.SetVisibility(ctx, "skills", true))
		assert.Equal(t, []sections.ID{"intro", "education", "work", "skills"}, m.SectionOrder())
		assert.Contains(t, m.Visible(), sections.ID("skills"))

		// Showing an id already in the order does not duplicate it.
		require.NoError(t, m.SetVisibility(ctx, "skills", true))
		assert.Len(t, m.SectionOrder(), 4)

		// Hiding never removes from the order.
		require.NoError(t, m.SetVisibility(ctx, "skills", false))
		assert.Len(t, m.SectionOrder(), 4)
		assert.NotContains(t, m.Visible(), sections.ID("skills"))
	})

	t.Run("unknown section", func(t *testing.T) {
		m, _ := newTestModel(t)
		var vErr *domain.ValidationError
		require.ErrorAs(t, m.SetVisibility(ctx, "nope", true), &vErr)
	})
}

func TestAvailableSections(t *testing.T) {
	ctx := context.Background()
	m, reg := newTestModel(t)
	require.NoError(t, m.ToggleVisibility(ctx, "showEducation", false))

	avail := m.AvailableSections()
	require.Len(t, avail, len(reg.AllIDs()))
	byID := map[sections.ID]sections.Available{}
	for _, a := range avail {
		byID[a.ID] = a
	}
	assert.False(t, byID["education"].Visible)
	assert.True(t, byID["education"].InOrder)
	assert.True(t, byID["skills"].Visible, "absent flag reads as visible")
	assert.False(t, byID["skills"].InOrder)
}

func TestCurrentConfig_ReturnsCopy(t *testing.T) {
	m, _ := newTestModel(t)
	cfg := m.CurrentConfig()
	cfg.SectionOrder[0] = "skills"
	cfg.VisibilityFlags["showIntro"] = false
	assert.Equal(t, sections.ID("intro"), m.SectionOrder()[0])
	assert.Contains(t, m.Visible(), sections.ID("intro"))
}

func TestPersistence_LoadRestoresState(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m, _ := newTestModel(t, sections.WithStore(mem))
	require.NoError(t, m.SelectTemplate(ctx, 1))
	require.NoError(t, m.UpdateSectionOrder(ctx, []sections.ID{"skills", "intro"}))

	reloaded, _ := newTestModel(t, sections.WithStore(mem))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 1, reloaded.ActiveTemplate())
	assert.Equal(t, []sections.ID{"skills", "intro"}, reloaded.SectionOrder())
}

func TestPersistence_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Memory: store.NewMemory()}
	m, _ := newTestModel(t, sections.WithStore(fs))

	fs.fail = true
	require.Error(t, m.UpdateSectionOrder(ctx, []sections.ID{"work"}))
	require.Error(t, m.ToggleVisibility(ctx, "showIntro", false))
	require.Error(t, m.SelectTemplate(ctx, 1))

	assert.Equal(t, []sections.ID{"intro", "education", "work"}, m.SectionOrder())
	assert.Equal(t, []sections.ID{"intro", "education", "work"}, m.Visible())
	assert.Equal(t, 0, m.ActiveTemplate())
}
