// Package layout composes the visible résumé sections into a template's
// regions. Templates never reorder sections: every region lists its blocks in
// the global section order.
package layout

import (
	"strconv"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
)

// Layout kinds.
const (
	KindSingleColumn = "single-column"
	KindTwoColumn    = "two-column"
	KindGrid         = "grid"
)

// Block is one rendered section.
type Block struct {
	Section sections.ID `json:"section"`
	Title   string      `json:"title"`
	Body    string      `json:"body"`
}

// Region is a container of blocks, e.g. a column.
type Region struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// Layout is the composed output of a template.
type Layout struct {
	Template string   `json:"template"`
	Kind     string   `json:"kind"`
	Regions  []Region `json:"regions"`
}

// Input is everything a template composes from.
type Input struct {
	// Sections is the filtered render list, already in display order.
	Sections  []sections.ID
	Renderers Renderers
	Data      *resume.Snapshot
	Registry  *sections.Registry
}

// Template lays out a filtered section list.
type Template interface {
	Name() string
	Compose(in Input) Layout
}

type base struct {
	name      string
	overrides Renderers
}

func (b base) Name() string { return b.name }

// blocks renders in.Sections in order, skipping ids without a renderer.
func (b base) blocks(in Input) []Block {
	renderers := in.Renderers.With(b.overrides)
	data := in.Data
	if data == nil {
		data = &resume.Snapshot{}
	}
	out := make([]Block, 0, len(in.Sections))
	for _, id := range in.Sections {
		fn, ok := renderers[id]
		if !ok {
			continue
		}
		title := string(id)
		if in.Registry != nil {
			title = in.Registry.DisplayName(id)
		}
		out = append(out, Block{Section: id, Title: title, Body: fn(data)})
	}
	return out
}

// SingleColumn stacks every block in one region.
type SingleColumn struct{ base }

func NewSingleColumn(name string, overrides Renderers) *SingleColumn {
	return &SingleColumn{base{name: name, overrides: overrides}}
}

func (t *SingleColumn) Compose(in Input) Layout {
	return Layout{
		Template: t.name,
		Kind:     KindSingleColumn,
		Regions:  []Region{{Name: "main", Blocks: t.blocks(in)}},
	}
}

// TwoColumn puts sidebar sections on the left and the rest on the right.
// The split is a stable partition of the global order.
type TwoColumn struct {
	base
	sidebar map[sections.ID]bool
}

func NewTwoColumn(name string, sidebar []sections.ID, overrides Renderers) *TwoColumn {
	set := make(map[sections.ID]bool, len(sidebar))
	for _, id := range sidebar {
		set[id] = true
	}
	return &TwoColumn{base: base{name: name, overrides: overrides}, sidebar: set}
}

func (t *TwoColumn) Compose(in Input) Layout {
	side := Region{Name: "sidebar", Blocks: []Block{}}
	main := Region{Name: "main", Blocks: []Block{}}
	for _, b := range t.blocks(in) {
		if t.sidebar[b.Section] {
			side.Blocks = append(side.Blocks, b)
		} else {
			main.Blocks = append(main.Blocks, b)
		}
	}
	return Layout{Template: t.name, Kind: KindTwoColumn, Regions: []Region{side, main}}
}

// Grid deals blocks row-major into a fixed number of columns: block i goes to
// column i mod N.
type Grid struct {
	base
	columns int
}

func NewGrid(name string, columns int, overrides Renderers) *Grid {
	if columns < 1 {
		columns = 1
	}
	return &Grid{base: base{name: name, overrides: overrides}, columns: columns}
}

func (t *Grid) Compose(in Input) Layout {
	regions := make([]Region, t.columns)
	for i := range regions {
		regions[i] = Region{Name: columnName(i), Blocks: []Block{}}
	}
	for i, b := range t.blocks(in) {
		col := i % t.columns
		regions[col].Blocks = append(regions[col].Blocks, b)
	}
	return Layout{Template: t.name, Kind: KindGrid, Regions: regions}
}

func columnName(i int) string {
	return "column-" + strconv.Itoa(i+1)
}
